package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"investhub/internal/adapters/email"
	"investhub/internal/domain/outbox"
)

// Retry tuning defaults.
const (
	DefaultRetryBatch     = 100
	DefaultRetryBaseDelay = time.Minute
	DefaultRetryMaxDelay  = time.Hour
)

// OutboxStoreForRetry defines the store interface needed by OutboxRetry.
type OutboxStoreForRetry interface {
	ListPending(ctx context.Context, limit int) ([]outbox.Entry, error)
	Save(ctx context.Context, e outbox.Entry) error
	PurgeDone(ctx context.Context, before time.Time) (int64, error)
}

// OutboxRetryDeps provides the dependencies for retrying outbox entries.
type OutboxRetryDeps struct {
	OutboxStore OutboxStoreForRetry
	Sender      email.Sender
	Now         func() time.Time
	BaseDelay   time.Duration // zero uses DefaultRetryBaseDelay
	MaxDelay    time.Duration // zero uses DefaultRetryMaxDelay
}

// OutboxRetryResult counts what a retry pass did.
type OutboxRetryResult struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int // still inside their backoff window
}

// ExecuteOutboxRetry makes one delivery attempt for every due entry.
// Backoff doubles per attempt from BaseDelay up to MaxDelay.
// PRE: Deps are valid and store is connected
// POST: Each due entry is attempted once and saved with its outcome
func ExecuteOutboxRetry(ctx context.Context, deps OutboxRetryDeps) (OutboxRetryResult, error) {
	var res OutboxRetryResult
	entries, err := deps.OutboxStore.ListPending(ctx, DefaultRetryBatch)
	if err != nil {
		return res, fmt.Errorf("failed to list retryable outbox entries: %w", err)
	}
	if len(entries) == 0 {
		return res, nil
	}

	base, ceiling := deps.BaseDelay, deps.MaxDelay
	if base <= 0 {
		base = DefaultRetryBaseDelay
	}
	if ceiling <= 0 {
		ceiling = DefaultRetryMaxDelay
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		now := deps.Now()
		if !entry.CanRetry() {
			// Attempts exhausted while still open, e.g. after MaxAttempts was lowered.
			entry.Status = outbox.StatusFailed
			deps.OutboxStore.Save(ctx, entry)
			res.Failed++
			continue
		}
		if !entry.Due(now, base, ceiling) {
			res.Skipped++
			continue
		}
		res.Processed++

		var sendErr error
		switch entry.ActionType {
		case outbox.ActionTypeEmail:
			sendErr = deliverEmail(ctx, &entry, deps.Sender, now)
		default:
			entry.MarkAbandoned()
			sendErr = fmt.Errorf("unknown action type: %s", entry.ActionType)
			entry.ErrorMessage = sendErr.Error()
		}

		if sendErr != nil {
			res.Failed++
			slog.Error("outbox_retry_failed", "entry_id", entry.ID, "action", entry.ActionType, "attempt", entry.Attempts, "status", entry.Status, "error", sendErr)
		} else {
			res.Succeeded++
			slog.Info("outbox_retry_succeeded", "entry_id", entry.ID, "action", entry.ActionType, "attempt", entry.Attempts)
		}

		if err := deps.OutboxStore.Save(ctx, entry); err != nil {
			slog.Error("outbox_retry_save_failed", "entry_id", entry.ID, "error", err)
		}
	}

	slog.Info("outbox_retry_complete", "processed", res.Processed, "succeeded", res.Succeeded, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

// OutboxRetryConfig holds configuration for the retry scheduler.
type OutboxRetryConfig struct {
	Enabled       bool
	Schedule      string        // cron spec for retry passes, e.g. "@every 1m"
	PurgeSchedule string        // cron spec for purging delivered entries; empty disables
	RetainDone    time.Duration // delivered entries older than this are purged
}

// DefaultOutboxRetryConfig returns sensible defaults.
func DefaultOutboxRetryConfig() OutboxRetryConfig {
	return OutboxRetryConfig{
		Enabled:       true,
		Schedule:      "@every 1m",
		PurgeSchedule: "@daily",
		RetainDone:    30 * 24 * time.Hour,
	}
}

// StartOutboxRetryScheduler runs retry and purge passes on cron schedules
// until ctx is cancelled or the returned stop function is called.
// PRE: deps are initialized
// POST: returns a stop function that waits for running passes to finish
func StartOutboxRetryScheduler(ctx context.Context, deps OutboxRetryDeps, cfg OutboxRetryConfig) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn))
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	if _, err := c.AddFunc(cfg.Schedule, func() {
		if _, err := ExecuteOutboxRetry(ctx, deps); err != nil {
			slog.Error("outbox_retry_error", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid outbox retry schedule %q: %w", cfg.Schedule, err)
	}

	if cfg.PurgeSchedule != "" && cfg.RetainDone > 0 {
		if _, err := c.AddFunc(cfg.PurgeSchedule, func() {
			n, err := deps.OutboxStore.PurgeDone(ctx, deps.Now().Add(-cfg.RetainDone))
			if err != nil {
				slog.Error("outbox_purge_failed", "error", err)
				return
			}
			slog.Info("outbox_purged", "deleted", n)
		}); err != nil {
			return nil, fmt.Errorf("invalid outbox purge schedule %q: %w", cfg.PurgeSchedule, err)
		}
	}

	c.Start()
	slog.Info("outbox_scheduler_started", "schedule", cfg.Schedule, "purge_schedule", cfg.PurgeSchedule)

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		select {
		case <-ctx.Done():
		case <-done:
		}
		<-c.Stop().Done()
		slog.Info("outbox_scheduler_stopped")
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-finished
	}, nil
}
