package perf

import (
	"sync"
	"testing"
	"time"
)

// TestCollector_Record_And_Snapshot verifies requests, queries and upstream calls are aggregated separately.
func TestCollector_Record_And_Snapshot(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "GET /browse/stakeholders", StatusCode: 200, DurationMs: 10, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /browse/stakeholders", StatusCode: 200, DurationMs: 30, Timestamp: now})
	c.Record(Entry{Kind: KindQuery, Path: "ExecContext", DurationMs: 5, Timestamp: now})
	c.Record(Entry{Kind: KindUpstream, Path: "cms stakeholders", StatusCode: 200, DurationMs: 80, Timestamp: now})
	c.Record(Entry{Kind: KindUpstream, Path: "cms stakeholders", StatusCode: 502, DurationMs: 40, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 5 {
		t.Errorf("TotalRecorded = %d, want 5", snap.TotalRecorded)
	}
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].AvgMs != 20 {
		t.Errorf("SlowestPaths = %+v, want one path averaging 20ms", snap.SlowestPaths)
	}
	if len(snap.SlowestQueries) != 1 {
		t.Errorf("SlowestQueries len = %d, want 1", len(snap.SlowestQueries))
	}
	if len(snap.SlowestUpstream) != 1 || snap.SlowestUpstream[0].AvgMs != 60 {
		t.Errorf("SlowestUpstream = %+v, want one endpoint averaging 60ms", snap.SlowestUpstream)
	}
	if snap.UpstreamErrors != 1 {
		t.Errorf("UpstreamErrors = %d, want 1", snap.UpstreamErrors)
	}
}

// TestCollector_RingBuffer_Overwrites verifies oldest entries are overwritten when full.
func TestCollector_RingBuffer_Overwrites(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /x", DurationMs: float64(i), Timestamp: now})
	}
	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Count != 3 {
		t.Errorf("SlowestPaths = %+v, want a single path with 3 entries", snap.SlowestPaths)
	}
}

// TestCollector_Percentiles verifies P50/P95/P99 calculation.
func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()
	for i := 1; i <= 100; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /p", DurationMs: float64(i), Timestamp: now})
	}

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.RequestP50Ms < 49 || snap.RequestP50Ms > 51 {
		t.Errorf("P50 = %v, want ~50", snap.RequestP50Ms)
	}
	if snap.RequestP99Ms < 98 || snap.RequestP99Ms > 100 {
		t.Errorf("P99 = %v, want ~99", snap.RequestP99Ms)
	}
}

// TestCollector_Snapshot_FiltersBySince verifies old entries are excluded.
func TestCollector_Snapshot_FiltersBySince(t *testing.T) {
	c := NewCollector(100)
	c.Record(Entry{Kind: KindRequest, Path: "GET /old", DurationMs: 100, Timestamp: time.Now().Add(-2 * time.Hour)})
	c.Record(Entry{Kind: KindRequest, Path: "GET /new", DurationMs: 10, Timestamp: time.Now()})

	snap := c.Snapshot(time.Now().Add(-time.Hour), 10)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != "GET /new" {
		t.Errorf("SlowestPaths = %+v, want only GET /new", snap.SlowestPaths)
	}
}

// TestCollector_Track verifies Track records a duration and tolerates a nil collector.
func TestCollector_Track(t *testing.T) {
	var nilCollector *Collector
	nilCollector.Track(KindUpstream, "cms x", 200, time.Now()) // must not panic

	c := NewCollector(10)
	c.Track(KindUpstream, "cms knowledge-hubs", 0, time.Now().Add(-5*time.Millisecond))
	snap := c.Snapshot(time.Now().Add(-time.Minute), 5)
	if len(snap.SlowestUpstream) != 1 {
		t.Fatalf("SlowestUpstream len = %d, want 1", len(snap.SlowestUpstream))
	}
	if snap.SlowestUpstream[0].MaxMs < 5 {
		t.Errorf("MaxMs = %v, want >= 5", snap.SlowestUpstream[0].MaxMs)
	}
	if snap.UpstreamErrors != 1 {
		t.Errorf("a zero status counts as a network failure, got %d errors", snap.UpstreamErrors)
	}
}

// TestCollector_ConcurrentWrites verifies goroutine safety of Record.
func TestCollector_ConcurrentWrites(t *testing.T) {
	c := NewCollector(1000)
	now := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Record(Entry{Kind: KindRequest, Path: "GET /c", DurationMs: float64(n), Timestamp: now})
			}
		}(i)
	}
	wg.Wait()
	if c.TotalRecorded() != 1000 {
		t.Errorf("TotalRecorded = %d, want 1000", c.TotalRecorded())
	}
}

// BenchmarkCollectorRecord measures per-call cost of Record().
func BenchmarkCollectorRecord(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	e := Entry{Kind: KindRequest, Path: "GET /bench", StatusCode: 200, DurationMs: 1.5, Timestamp: time.Now()}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Record(e)
	}
}
