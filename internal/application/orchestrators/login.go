package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"investhub/internal/domain/account"
)

// AccountStoreForLogin defines the store interface needed by Login.
type AccountStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	AccountID string
	Email     string
	Name      string
	Role      string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	AccountStore AccountStoreForLogin
	Now          func() time.Time
}

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountLocked       = errors.New("account is locked after too many failed attempts, try again later")
	ErrPendingVerification = errors.New("confirm your email address using the link we sent before signing in")
)

// ExecuteLogin validates credentials and returns account info for session creation.
// PRE: Valid email and password provided
// POST: Returns account info on success, records failed login on failure
// INVARIANT: Locked and unverified accounts never sign in
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := deps.Now()
	email := account.NormalizeEmail(input.Email)

	acct, err := deps.AccountStore.GetByEmail(ctx, email)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "not_found")
		return LoginResult{}, ErrInvalidCredentials
	}

	if acct.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "locked")
		return LoginResult{}, ErrAccountLocked
	}

	if err := acct.CheckPassword(input.Password); err != nil {
		acct.RecordFailedLogin(now)
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			slog.Error("account_save_failed", "account_id", acct.ID, "error", err)
		}
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "wrong_password", "failed_logins", acct.FailedLogins)
		return LoginResult{}, ErrInvalidCredentials
	}

	// Checked after the password so the message does not confirm an address to a guesser.
	if acct.IsPendingVerification() {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "pending_verification")
		return LoginResult{}, ErrPendingVerification
	}

	if acct.FailedLogins > 0 || !acct.LockedUntil.IsZero() {
		acct.ResetFailedLogins()
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			slog.Error("account_save_failed", "account_id", acct.ID, "error", err)
		}
	}

	slog.Info("auth_event", "event", "login_success", "email", email, "role", acct.Role)
	return LoginResult{
		AccountID: acct.ID,
		Email:     acct.Email,
		Name:      acct.Name,
		Role:      acct.Role,
	}, nil
}
