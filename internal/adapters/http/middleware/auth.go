package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	domainAccount "investhub/internal/domain/account"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const accountContextKey contextKey = "account"

// SessionTTL is how long a session stays valid after login.
const SessionTTL = 24 * time.Hour

// Session represents an authenticated session.
type Session struct {
	AccountID string
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
}

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Create stores a new session and returns the token.
// PRE: accountID, email, role are non-empty
// POST: Session is stored, token is returned
func (ss *SessionStore) Create(accountID, email, name, role string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[token] = Session{
		AccountID: accountID,
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: ss.now(),
	}
	return token, nil
}

// Get retrieves a session by token.
// PRE: token is non-empty
// POST: Returns session if valid and not expired; expired sessions are removed
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	session, ok := ss.sessions[token]
	if !ok {
		return Session{}, false
	}
	if ss.now().Sub(session.CreatedAt) > SessionTTL {
		delete(ss.sessions, token)
		return Session{}, false
	}
	return session, true
}

// Delete removes a session by token.
// PRE: token is non-empty
// POST: Session with given token is removed
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, token)
}

// Len returns the number of stored sessions, expired ones included.
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "investhub_session"

// Auth returns middleware that extracts the session from the cookie and sets the account in context.
// It does NOT block unauthenticated requests; use RequireAuth or RequireRole for that.
func Auth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err == nil && cookie.Value != "" {
				if session, ok := sessions.Get(cookie.Value); ok {
					r = r.WithContext(ContextWithSession(r.Context(), session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns middleware that blocks unauthenticated requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware that blocks requests from users without one of the specified roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSessionFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if !roleSet[session.Role] {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(accountContextKey).(Session)
	return session, ok
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

// IsRole checks if the current session has one of the given roles.
func IsRole(ctx context.Context, roles ...string) bool {
	session, ok := GetSessionFromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range roles {
		if session.Role == r {
			return true
		}
	}
	return false
}

// IsAdmin checks if the current session is an admin.
func IsAdmin(ctx context.Context) bool {
	return IsRole(ctx, domainAccount.RoleAdmin)
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, accountContextKey, sess)
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
