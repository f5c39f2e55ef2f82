package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"investhub/internal/adapters/storage"
	domain "investhub/internal/domain/contact"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const submissionColumns = "id, name, email, organisation, subject, message, account_id, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new contact store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts a submission. Submissions are immutable once stored.
// PRE: s has been validated
func (s *SQLiteStore) Save(ctx context.Context, sub domain.Submission) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO contact_submission ("+submissionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		sub.ID, sub.Name, sub.Email, sub.Organisation, sub.Subject, sub.Message, sub.AccountID,
		sub.CreatedAt.UTC().Format(dateLayout))
	return err
}

// GetByID retrieves a submission.
// POST: Returns the submission or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Submission, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+submissionColumns+" FROM contact_submission WHERE id = ?", id)
	sub, err := scanSubmission(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Submission{}, fmt.Errorf("contact submission not found: %w", err)
	}
	return sub, err
}

// ListRecent returns one page of submissions, newest first.
// PRE: limit > 0, offset >= 0
func (s *SQLiteStore) ListRecent(ctx context.Context, limit, offset int) ([]domain.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+submissionColumns+" FROM contact_submission ORDER BY created_at DESC, id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Count returns the number of stored submissions.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contact_submission").Scan(&n)
	return n, err
}

func scanSubmission(scan func(dest ...any) error) (domain.Submission, error) {
	var sub domain.Submission
	var createdAt string
	if err := scan(&sub.ID, &sub.Name, &sub.Email, &sub.Organisation, &sub.Subject,
		&sub.Message, &sub.AccountID, &createdAt); err != nil {
		return domain.Submission{}, err
	}
	sub.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	return sub, nil
}
