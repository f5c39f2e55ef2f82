package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"investhub/internal/adapters/http/middleware"
	"investhub/internal/application/listutil"
	accountDomain "investhub/internal/domain/account"
	"investhub/internal/domain/outbox"
)

// requireAdmin returns the session if it belongs to an admin, writing 401/403 otherwise.
func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	if sess.Role != accountDomain.RoleAdmin {
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role, "required", accountDomain.RoleAdmin)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return middleware.Session{}, false
	}
	return sess, true
}

// queryInt reads a positive integer parameter, falling back to def and capping at max.
func queryInt(r *http.Request, name string, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// handleAdminPerf handles GET /admin/perf
// Query: window (minutes, default 15), top (default 10)
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	window := time.Duration(queryInt(r, "window", 15, 24*60)) * time.Minute
	top := queryInt(r, "top", 10, 100)
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-window), top))
}

// outboxSummary is the JSON body of GET /admin/outbox.
type outboxSummary struct {
	Counts map[string]int `json:"counts"`
	Failed []outboxRow    `json:"failed"`
}

type outboxRow struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	Attempts        int       `json:"attempts"`
	LastAttemptedAt time.Time `json:"lastAttemptedAt"`
	Error           string    `json:"error,omitempty"`
}

// handleAdminOutbox handles GET /admin/outbox: per-status counts plus the entries that gave up.
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	ctx := r.Context()

	counts, err := stores.OutboxStore.CountByStatus(ctx)
	if err != nil {
		internalError(w, err)
		return
	}
	failed, err := stores.OutboxStore.ListFailed(ctx, queryInt(r, "limit", 50, 100))
	if err != nil {
		internalError(w, err)
		return
	}

	if counts == nil {
		counts = map[string]int{}
	}
	body := outboxSummary{Counts: counts, Failed: make([]outboxRow, 0, len(failed))}
	for _, e := range failed {
		body.Failed = append(body.Failed, outboxRow{
			ID:              e.ID,
			Status:          e.Status,
			Attempts:        e.Attempts,
			LastAttemptedAt: e.LastAttemptedAt,
			Error:           e.ErrorMessage,
		})
	}
	for _, s := range []string{outbox.StatusPending, outbox.StatusRetrying, outbox.StatusDone, outbox.StatusFailed, outbox.StatusAbandoned} {
		if _, ok := body.Counts[s]; !ok {
			body.Counts[s] = 0
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// handleAdminContact handles GET /admin/contact with the latest submissions.
func handleAdminContact(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	total, err := stores.ContactStore.Count(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	pi := listutil.NewPageInfo(listutil.ParsePageParams(r.URL.Query()), total, r.URL.Query())
	subs, err := stores.ContactStore.ListRecent(r.Context(), pi.PerPage, pi.Offset())
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "admin_contact.html", map[string]any{
		"Submissions": subs,
		"Total":       total,
		"Pages":       pi,
	})
}
