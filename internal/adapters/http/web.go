package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"investhub/internal/adapters/email"
	"investhub/internal/adapters/http/middleware"
	"investhub/internal/adapters/http/perf"
	accountStore "investhub/internal/adapters/storage/account"
	contactStore "investhub/internal/adapters/storage/contact"
	outboxStore "investhub/internal/adapters/storage/outbox"
	"investhub/internal/application/orchestrators"
	"investhub/internal/application/projections"
	"investhub/internal/domain/collection"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore accountStore.Store
	ContactStore contactStore.Store
	OutboxStore  outboxStore.Store
}

// Options carries the settings NewMux needs beyond its stores.
type Options struct {
	CSRFKey        string // 64 hex characters; random per process when empty
	Production     bool   // requires CSRFKey and marks cookies Secure
	TrustedOrigins []string
	BaseURL        string // public root used in emailed links
	ContactInbox   []string
	RateLimit      int // state-changing requests per IP per RateWindow
	RateWindow     time.Duration
	SlowRequest    time.Duration
	Sender         email.Sender // optional; nil leaves mail for the outbox scheduler
	Collections    []collection.Collection
}

// loadCSRFKey decodes the configured CSRF secret.
// In production the key MUST be set. In development a random key is generated per startup.
func loadCSRFKey(keyHex string, production bool) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, errors.New("CSRF key must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if production {
		return nil, errors.New("CSRF key is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate CSRF key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "form tokens will not survive a restart; set HUB_CSRF_KEY")
	return key, nil
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global content reader (set by NewMux)
var content projections.ContentFetcher

// Global session store instance
var sessions *middleware.SessionStore

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global site settings (set by NewMux)
var site Options

// collections is the catalog served by this mux, keyed by slug.
var collections map[string]collection.Collection

// NewMux wires HTTP handlers for the app.
// PRE: s and cf are non-nil
// POST: package globals point at the given dependencies
func NewMux(s *Stores, cf projections.ContentFetcher, collector *perf.Collector, opts Options) (http.Handler, error) {
	csrfKey, err := loadCSRFKey(opts.CSRFKey, opts.Production)
	if err != nil {
		return nil, err
	}
	if len(opts.Collections) == 0 {
		opts.Collections = collection.All()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}

	stores = s
	content = cf
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	site = opts
	collections = make(map[string]collection.Collection, len(opts.Collections))
	for _, c := range opts.Collections {
		collections[c.Slug] = c
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.FileServerFS(staticFS))
	registerRoutes(mux)

	limiter := middleware.NewRateLimiter(opts.RateLimit, opts.RateWindow)

	// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Recover -> Mux
	return middleware.Chain(mux,
		middleware.Recover,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, middleware.CSRFOptions{Secure: opts.Production, TrustedOrigins: opts.TrustedOrigins}),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, opts.SlowRequest),
	), nil
}

// registerRoutes binds every page and API endpoint.
func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleHome)
	mux.HandleFunc("GET /browse/{collection}", handleBrowse)
	mux.HandleFunc("GET /browse/{collection}/{slug}", handleListingDetail)
	mux.HandleFunc("GET /api/listings/{collection}", handleAPIListings)

	mux.HandleFunc("/register", handleRegister)
	mux.HandleFunc("GET /verify", handleVerify)
	mux.HandleFunc("POST /resend-verification", handleResendVerification)
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("POST /logout", handleLogout)
	mux.Handle("/account/password", middleware.RequireAuth(http.HandlerFunc(handleChangePassword)))

	mux.HandleFunc("/contact", handleContact)

	mux.HandleFunc("GET /admin/perf", handleAdminPerf)
	mux.HandleFunc("GET /admin/outbox", handleAdminOutbox)
	mux.HandleFunc("GET /admin/contact", handleAdminContact)
}

// secureCookies reports whether session cookies carry the Secure flag.
func secureCookies() bool {
	return site.Production
}

// mailDeps builds the outbox dependencies shared by every mailing handler.
func mailDeps() orchestrators.MailDeps {
	return orchestrators.MailDeps{
		Outbox:     stores.OutboxStore,
		Sender:     site.Sender,
		GenerateID: generateID,
		Now:        timeNow,
	}
}
