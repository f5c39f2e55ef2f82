package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// Connection pool settings for WAL mode.
const (
	MaxOpenConns = 25
	MaxIdleConns = 25
)

// DSN returns a modernc sqlite DSN for path with WAL, busy timeout,
// foreign keys and NORMAL sync enabled.
func DSN(path string) string {
	pragmas := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(ON)",
		"_pragma=synchronous(NORMAL)",
	}
	return path + "?" + strings.Join(pragmas, "&")
}

// Open opens the sqlite database at path and verifies the connection.
// PRE: the sqlite driver is registered by the caller
// POST: Returns a pinged pool sized for WAL mode
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(MaxOpenConns)
	db.SetMaxIdleConns(MaxIdleConns)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// migrations are applied in order; index+1 is the schema version they produce.
var migrations = []string{
	// 1: accounts and email verification
	`CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT
	);

	CREATE TABLE IF NOT EXISTS verification_token (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		used INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		FOREIGN KEY (account_id) REFERENCES account(id) ON DELETE CASCADE
	);`,

	// 2: deferred side effects
	`CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, created_at);`,

	// 3: contact form
	`CREATE TABLE IF NOT EXISTS contact_submission (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		organisation TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		account_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contact_created ON contact_submission(created_at);`,
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return len(migrations)
}

// MigrateDB applies every migration newer than the recorded schema version.
// PRE: db is a valid database connection
// POST: schema_version equals LatestSchemaVersion; already-applied migrations are skipped
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", i+1, err)
		}
		slog.Info("schema_migrated", "version", i+1)
	}
	return nil
}

// SchemaVersion returns the recorded schema version, 0 for a fresh database.
func SchemaVersion(db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}
