package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"investhub/internal/domain/account"
)

// ChangePasswordInput carries input for the change-password orchestrator.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
}

// AccountStoreForChangePassword defines the store interface needed by ChangePassword.
type AccountStoreForChangePassword interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// ChangePasswordDeps holds dependencies for ChangePassword.
type ChangePasswordDeps struct {
	AccountStore AccountStoreForChangePassword
}

var (
	ErrPasswordFieldsRequired = errors.New("all password fields are required")
	ErrCurrentPasswordWrong   = errors.New("current password is incorrect")
	ErrNewPasswordSame        = errors.New("new password must be different from current password")
)

// ExecuteChangePassword checks the current password and stores the new one.
// PRE: AccountID belongs to the signed-in session
// POST: Password hash replaced; failed-login counter cleared
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps ChangePasswordDeps) error {
	if input.AccountID == "" || input.CurrentPassword == "" || input.NewPassword == "" {
		return ErrPasswordFieldsRequired
	}

	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return err
	}
	if err := acct.CheckPassword(input.CurrentPassword); err != nil {
		slog.Info("auth_event", "event", "password_change_rejected", "account_id", acct.ID)
		return ErrCurrentPasswordWrong
	}
	if input.CurrentPassword == input.NewPassword {
		return ErrNewPasswordSame
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return err
	}
	acct.ResetFailedLogins()

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "account_id", acct.ID)
	return nil
}
