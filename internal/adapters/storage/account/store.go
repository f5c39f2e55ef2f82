package account

import (
	"context"

	domain "investhub/internal/domain/account"
)

// Store persists Account state and email verification tokens.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Account, error)
	Count(ctx context.Context) (int, error)
	SaveVerificationToken(ctx context.Context, token domain.VerificationToken) error
	GetVerificationToken(ctx context.Context, token string) (domain.VerificationToken, error)
	InvalidateTokensForAccount(ctx context.Context, accountID string) error
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit  int
	Offset int
	Role   string
	Status string
}
