package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"investhub/internal/adapters/storage"
	domain "investhub/internal/domain/account"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const accountColumns = "id, email, name, password_hash, role, status, created_at, failed_logins, locked_until"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE id = ?", id)
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// GetByEmail retrieves an Account by email, ignoring case and surrounding space.
// PRE: email is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE email = ?", domain.NormalizeEmail(email))
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update); email is stored normalized
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	updates := []string{
		"email=excluded.email",
		"name=excluded.name",
		"password_hash=excluded.password_hash",
		"role=excluded.role",
		"status=excluded.status",
		"failed_logins=excluded.failed_logins",
		"locked_until=excluded.locked_until",
	}
	query := fmt.Sprintf(
		"INSERT INTO account (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET %s",
		accountColumns,
		strings.Join(updates, ", "),
	)

	var lockedUntil any
	if !entity.LockedUntil.IsZero() {
		lockedUntil = entity.LockedUntil.Format(dateLayout)
	}

	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		domain.NormalizeEmail(entity.Email),
		entity.Name,
		entity.PasswordHash,
		entity.Role,
		entity.Status,
		entity.CreatedAt.Format(dateLayout),
		entity.FailedLogins,
		lockedUntil,
	)
	return err
}

// Delete removes an Account and, by cascade, its tokens.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM account WHERE id = ?", id)
	return err
}

// List retrieves Accounts based on the filter, newest first.
// PRE: filter.Limit > 0
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	var b strings.Builder
	var where []string
	var args []any

	b.WriteString("SELECT " + accountColumns + " FROM account")
	if filter.Role != "" {
		where = append(where, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the total number of accounts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

// SaveVerificationToken persists a token.
// PRE: the owning account exists
// POST: token is inserted or its used flag updated
func (s *SQLiteStore) SaveVerificationToken(ctx context.Context, t domain.VerificationToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_token (id, account_id, token, expires_at, used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET used=excluded.used`,
		t.ID, t.AccountID, t.Token, t.ExpiresAt.Format(dateLayout), t.Used, t.CreatedAt.Format(dateLayout))
	return err
}

// GetVerificationToken looks a token up by its secret value.
// POST: Returns the token or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetVerificationToken(ctx context.Context, token string) (domain.VerificationToken, error) {
	var t domain.VerificationToken
	var expiresAt, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, token, expires_at, used, created_at FROM verification_token WHERE token = ?`, token).
		Scan(&t.ID, &t.AccountID, &t.Token, &expiresAt, &t.Used, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VerificationToken{}, fmt.Errorf("verification token not found: %w", err)
	}
	if err != nil {
		return domain.VerificationToken{}, err
	}
	t.ExpiresAt, _ = parseTime(expiresAt)
	t.CreatedAt, _ = parseTime(createdAt)
	return t, nil
}

// InvalidateTokensForAccount marks every unused token of an account as used.
// POST: no token of accountID can verify the account again
func (s *SQLiteStore) InvalidateTokensForAccount(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE verification_token SET used = 1 WHERE account_id = ? AND used = 0`, accountID)
	return err
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	err := scan(
		&entity.ID,
		&entity.Email,
		&entity.Name,
		&entity.PasswordHash,
		&entity.Role,
		&entity.Status,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt, _ = parseTime(createdAt)
	if lockedUntil.Valid && lockedUntil.String != "" {
		entity.LockedUntil, _ = parseTime(lockedUntil.String)
	}
	return entity, nil
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		t, err := time.Parse(f, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
