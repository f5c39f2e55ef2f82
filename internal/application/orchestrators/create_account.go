package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"investhub/internal/domain/account"
)

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	GenerateID   func() string
	Now          func() time.Time
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteCreateAccount creates an active account without email verification.
// It backs operator seeding; visitors go through ExecuteRegisterAccount.
// PRE: Valid email, password >= 12 chars, valid role
// POST: Active account created with hashed password
// INVARIANT: Email must be unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (string, error) {
	acct, err := newAccount(ctx, input, account.StatusActive, deps.AccountStore, deps.GenerateID, deps.Now)
	if err != nil {
		return "", err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}

	slog.Info("auth_event", "event", "account_created", "email", acct.Email, "role", acct.Role)
	return acct.ID, nil
}

// ExecuteSeedAdmin creates a default admin account if no accounts exist.
// PRE: Database is initialized
// POST: Admin account created if count == 0
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email:    email,
		Name:     "Administrator",
		Password: password,
		Role:     account.RoleAdmin,
	}, deps); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "admin_seeded", "email", email)
	return nil
}

type emailLookup interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
}

// newAccount builds and validates an account whose email is not yet taken.
func newAccount(ctx context.Context, input CreateAccountInput, status string, store emailLookup, genID func() string, now func() time.Time) (account.Account, error) {
	if input.Email == "" {
		return account.Account{}, account.ErrEmptyEmail
	}
	if input.Password == "" {
		return account.Account{}, account.ErrEmptyPassword
	}

	if _, err := store.GetByEmail(ctx, input.Email); err == nil {
		return account.Account{}, ErrEmailAlreadyExists
	}

	acct := account.Account{
		ID:        genID(),
		Email:     account.NormalizeEmail(input.Email),
		Name:      input.Name,
		Role:      input.Role,
		Status:    status,
		CreatedAt: now(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, err
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return account.Account{}, err
	}
	return acct, nil
}
