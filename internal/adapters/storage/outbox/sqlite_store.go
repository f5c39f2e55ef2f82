package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"investhub/internal/adapters/storage"
	domain "investhub/internal/domain/outbox"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const entryColumns = "id, action_type, payload, status, attempts, max_attempts, last_attempted_at, created_at, external_id, error_message"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new outbox store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an outbox entry by its ID.
// PRE: id is non-empty
// POST: Returns the entry or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM outbox WHERE id = ?", id)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, fmt.Errorf("outbox entry not found: %w", err)
	}
	return e, err
}

// Save persists an outbox entry.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	lastAttemptedAt := ""
	if !e.LastAttemptedAt.IsZero() {
		lastAttemptedAt = e.LastAttemptedAt.UTC().Format(dateLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
		   last_attempted_at=excluded.last_attempted_at, external_id=excluded.external_id,
		   error_message=excluded.error_message`,
		e.ID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		lastAttemptedAt, e.CreatedAt.UTC().Format(dateLayout), e.ExternalID, e.ErrorMessage)
	return err
}

// ListPending returns entries awaiting a delivery attempt, oldest first.
// PRE: limit > 0
func (s *SQLiteStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.list(ctx,
		"SELECT "+entryColumns+" FROM outbox WHERE status IN (?, ?) ORDER BY created_at ASC LIMIT ?",
		domain.StatusPending, domain.StatusRetrying, limit)
}

// ListFailed returns entries that will not be retried, most recent attempt first.
// PRE: limit > 0
func (s *SQLiteStore) ListFailed(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.list(ctx,
		"SELECT "+entryColumns+" FROM outbox WHERE status IN (?, ?) ORDER BY last_attempted_at DESC LIMIT ?",
		domain.StatusFailed, domain.StatusAbandoned, limit)
}

// CountByStatus returns the number of entries in each status present.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM outbox GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// PurgeDone deletes delivered entries created before the cutoff.
// POST: returns the number of rows removed; undelivered entries are kept
func (s *SQLiteStore) PurgeDone(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM outbox WHERE status = ? AND created_at < ?",
		domain.StatusDone, before.UTC().Format(dateLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// scanEntry extracts an Entry from a row scanner function.
func scanEntry(scan func(dest ...any) error) (domain.Entry, error) {
	var e domain.Entry
	var createdAt, lastAttemptedAt string
	err := scan(&e.ID, &e.ActionType, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &createdAt, &e.ExternalID, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, err
	}
	e.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	if lastAttemptedAt != "" {
		e.LastAttemptedAt, _ = time.Parse(dateLayout, lastAttemptedAt)
	}
	return e, nil
}
