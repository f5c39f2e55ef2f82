package outbox

import (
	"context"
	"time"

	domain "investhub/internal/domain/outbox"
)

// Store persists outbox entries awaiting delivery.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, value domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	PurgeDone(ctx context.Context, before time.Time) (int64, error)
}
