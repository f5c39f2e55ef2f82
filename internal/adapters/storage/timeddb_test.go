package storage

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"investhub/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTimedDB_RecordsEachCall verifies every wrapped method records an entry.
func TestTimedDB_RecordsEachCall(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	rows, err := tdb.QueryContext(ctx, "SELECT id, val FROM test")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	rows.Close()
	var val string
	if err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "1").Scan(&val); err != nil || val != "hello" {
		t.Fatalf("QueryRowContext: %q %v", val, err)
	}
	tx, err := tdb.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	tx.Rollback()

	if got := collector.TotalRecorded(); got != 4 {
		t.Errorf("TotalRecorded = %d, want 4", got)
	}
}

// TestTimedDB_OpLabels verifies query entries are grouped by method and verb.
func TestTimedDB_OpLabels(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES ('a', 'b')")
	tdb.ExecContext(ctx, "  update test SET val = 'c'")

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	seen := map[string]bool{}
	for _, s := range snap.SlowestQueries {
		seen[s.Path] = true
	}
	for _, want := range []string{"Exec INSERT", "Exec UPDATE"} {
		if !seen[want] {
			t.Errorf("missing op %q in %v", want, snap.SlowestQueries)
		}
	}
}

func TestOpLabel(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":          "Query SELECT",
		"\n\tselect * FROM": "Query SELECT",
		"":                  "Query",
	}
	for in, want := range cases {
		if got := opLabel("Query", in); got != want {
			t.Errorf("opLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestTimedDB_NilCollector verifies a nil collector is tolerated.
func TestTimedDB_NilCollector(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, time.Millisecond)
	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES ('1', 'x')"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
}

// TestTimedDB_ErrorPassthrough verifies errors reach the caller unchanged.
func TestTimedDB_ErrorPassthrough(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO missing VALUES (1)"); err == nil {
		t.Error("ExecContext on missing table should fail")
	}
	if _, err := tdb.QueryContext(ctx, "SELECT * FROM missing"); err == nil {
		t.Error("QueryContext on missing table should fail")
	}
	var v string
	if err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = 'nope'").Scan(&v); err != sql.ErrNoRows {
		t.Errorf("Scan err = %v, want sql.ErrNoRows", err)
	}
	if collector.TotalRecorded() != 3 {
		t.Errorf("failed calls are still timed; TotalRecorded = %d", collector.TotalRecorded())
	}
}

// TestTimedDB_CancelledContext verifies a cancelled context fails the call.
func TestTimedDB_CancelledContext(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES ('1', 'x')"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

// TestTimedDB_RawDB verifies RawDB returns the wrapped handle.
func TestTimedDB_RawDB(t *testing.T) {
	db := openTimedTestDB(t)
	if NewTimedDB(db, nil, 0).RawDB() != db {
		t.Error("RawDB should return the underlying *sql.DB")
	}
}

// TestTimedDB_Concurrent verifies concurrent use records every call.
func TestTimedDB_Concurrent(t *testing.T) {
	collector := perf.NewCollector(1000)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var n int
			tdb.QueryRowContext(ctx, "SELECT COUNT(*) FROM test").Scan(&n)
		}()
	}
	wg.Wait()

	if got := collector.TotalRecorded(); got != 20 {
		t.Errorf("TotalRecorded = %d, want 20", got)
	}
}

func BenchmarkTimedDB_ExecContext(b *testing.B) {
	db, _ := sql.Open("sqlite", ":memory:")
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, val TEXT)")
	tdb := NewTimedDB(db, perf.NewCollector(1000), 0)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tdb.ExecContext(ctx, "INSERT INTO test (val) VALUES (?)", "x")
	}
}
