package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"investhub/internal/adapters/http/perf"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var _ SQLDB = (*sql.DB)(nil)

// DefaultSlowQuery is the threshold used when none is configured.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedDB wraps a *sql.DB to log slow queries and record them to a collector.
type TimedDB struct {
	db        *sql.DB
	collector *perf.Collector
	slow      time.Duration
}

var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db with timing instrumentation.
// PRE: db is a valid database connection; collector may be nil
// POST: queries at or above slow log a warning; slow <= 0 uses DefaultSlowQuery
func NewTimedDB(db *sql.DB, collector *perf.Collector, slow time.Duration) *TimedDB {
	if slow <= 0 {
		slow = DefaultSlowQuery
	}
	return &TimedDB{db: db, collector: collector, slow: slow}
}

// RawDB returns the underlying *sql.DB for migrations and pool config.
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

// opLabel names a call by method and leading SQL keyword, e.g. "Exec INSERT".
func opLabel(method, query string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(query), " ")
	if verb == "" {
		return method
	}
	return method + " " + strings.ToUpper(verb)
}

func (t *TimedDB) logQuery(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	durationMs := float64(elapsed.Microseconds()) / 1000.0

	switch {
	case err != nil:
		slog.Warn("query_failed", "op", op, "duration_ms", durationMs, "error", err)
	case elapsed >= t.slow:
		slog.Warn("slow_query", "op", op, "duration_ms", durationMs)
	default:
		slog.Debug("query", "op", op, "duration_ms", durationMs)
	}

	t.collector.Track(perf.KindQuery, op, 0, start)
}

// ExecContext wraps sql.DB.ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.logQuery(opLabel("Exec", query), start, err)
	return result, err
}

// QueryContext wraps sql.DB.QueryContext with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.logQuery(opLabel("Query", query), start, err)
	return rows, err
}

// QueryRowContext wraps sql.DB.QueryRowContext with timing.
// Errors surface on Scan, so only the timing is recorded here.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.logQuery(opLabel("QueryRow", query), start, nil)
	return row
}

// BeginTx wraps sql.DB.BeginTx with timing.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.logQuery("BeginTx", start, err)
	return tx, err
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// Ping verifies the database connection.
func (t *TimedDB) Ping() error {
	return t.db.Ping()
}
