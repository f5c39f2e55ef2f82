package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/csrf"
)

// visitorIdleTTL is how long an idle visitor's bucket is retained.
const visitorIdleTTL = 5 * time.Minute

// RateLimiter provides a per-IP token bucket rate limiter.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      int           // tokens per interval
	interval  time.Duration // refill interval
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	tokens   int
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter allowing `rate` requests per `interval`.
// Idle visitors are swept during Allow, so the limiter owns no goroutine.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	if rate <= 0 {
		rate = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}
}

// Allow checks if a request from the given IP is allowed.
// PRE: ip is non-empty
// POST: Returns true if within rate limit, false if exceeded
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweepLocked(now)

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastSeen: now}
		return true
	}

	refill := int(now.Sub(v.lastSeen)/rl.interval) * rl.rate
	if refill > 0 {
		v.tokens += refill
		if v.tokens > rl.rate {
			v.tokens = rl.rate
		}
		v.lastSeen = now
	}

	if v.tokens <= 0 {
		slog.Warn("rate_limit_exceeded", "ip", ip)
		return false
	}
	v.tokens--
	return true
}

// Len returns the number of tracked visitors.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// sweepLocked drops idle visitors at most once per minute.
// PRE: rl.mu is held
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < time.Minute {
		return
	}
	rl.lastSweep = now
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorIdleTTL {
			delete(rl.visitors, ip)
		}
	}
}

// RateLimit returns middleware that limits state-changing requests per client IP.
// GET, HEAD and OPTIONS pass through unmetered.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(clientIP(r)) {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr so one client shares one bucket.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SecurityHeaders adds OWASP recommended headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' https: data:; connect-src 'self'")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// CSRFOptions configures CSRF protection.
type CSRFOptions struct {
	Secure         bool     // cookie Secure flag; false only for plain-HTTP development
	TrustedOrigins []string // host[:port] values allowed as Origin/Referer
}

// CSRF returns a handler that protects form submissions against CSRF attacks.
// PRE: authKey is 32 bytes
// JSON API requests (Content-Type: application/json) are exempted.
func CSRF(authKey []byte, opts CSRFOptions) func(http.Handler) http.Handler {
	csrfProtect := csrf.Protect(
		authKey,
		csrf.Secure(opts.Secure),
		csrf.Path("/"),
		csrf.TrustedOrigins(opts.TrustedOrigins),
	)

	return func(next http.Handler) http.Handler {
		protected := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				next.ServeHTTP(w, r)
				return
			}
			if !opts.Secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares in order; the last one listed is outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}
