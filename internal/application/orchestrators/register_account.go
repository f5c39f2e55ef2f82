package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"investhub/internal/domain/account"
	"investhub/internal/domain/outbox"
)

// AccountStoreForRegister defines the store interface needed by RegisterAccount.
type AccountStoreForRegister interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Delete(ctx context.Context, id string) error
	SaveVerificationToken(ctx context.Context, t account.VerificationToken) error
	InvalidateTokensForAccount(ctx context.Context, accountID string) error
}

// RegisterAccountInput carries the visitor's sign-up form.
type RegisterAccountInput struct {
	Email    string
	Name     string
	Password string
}

// RegisterAccountResult identifies the pending account.
type RegisterAccountResult struct {
	AccountID string
	OutboxID  string
}

// RegisterAccountDeps holds dependencies for RegisterAccount.
type RegisterAccountDeps struct {
	AccountStore AccountStoreForRegister
	Mail         MailDeps
	BaseURL      string // public site root used in the verification link
}

// ExecuteRegisterAccount creates a member account pending email verification
// and mails the verification link.
// PRE: Valid email, password >= 12 chars
// POST: Pending account and token stored; verification email queued
// POST: On a token or outbox failure the account is removed so the email can register again
// INVARIANT: Email must be unique
func ExecuteRegisterAccount(ctx context.Context, input RegisterAccountInput, deps RegisterAccountDeps) (RegisterAccountResult, error) {
	acct, err := newAccount(ctx, CreateAccountInput{
		Email:    input.Email,
		Name:     strings.TrimSpace(input.Name),
		Password: input.Password,
		Role:     account.RoleMember,
	}, account.StatusPendingVerification, deps.AccountStore, deps.Mail.GenerateID, deps.Mail.Now)
	if err != nil {
		return RegisterAccountResult{}, err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return RegisterAccountResult{}, err
	}

	entry, err := sendVerification(ctx, acct, deps)
	if err != nil {
		if derr := deps.AccountStore.Delete(ctx, acct.ID); derr != nil {
			slog.Error("account_rollback_failed", "account_id", acct.ID, "error", derr)
		}
		return RegisterAccountResult{}, err
	}

	slog.Info("auth_event", "event", "account_registered", "email", acct.Email)
	return RegisterAccountResult{AccountID: acct.ID, OutboxID: entry.ID}, nil
}

// ExecuteResendVerification issues a fresh link to a pending account.
// Unknown and already-verified addresses succeed silently so the form
// does not reveal which emails are registered.
// POST: earlier tokens for the account are invalidated
func ExecuteResendVerification(ctx context.Context, emailAddr string, deps RegisterAccountDeps) error {
	acct, err := deps.AccountStore.GetByEmail(ctx, emailAddr)
	if err != nil || !acct.IsPendingVerification() {
		slog.Info("auth_event", "event", "verification_resend_ignored", "email", account.NormalizeEmail(emailAddr))
		return nil
	}
	if err := deps.AccountStore.InvalidateTokensForAccount(ctx, acct.ID); err != nil {
		return err
	}
	_, err = sendVerification(ctx, acct, deps)
	return err
}

func sendVerification(ctx context.Context, acct account.Account, deps RegisterAccountDeps) (outbox.Entry, error) {
	tok, err := account.NewVerificationToken(deps.Mail.GenerateID(), acct.ID, deps.Mail.Now())
	if err != nil {
		return outbox.Entry{}, err
	}
	if err := deps.AccountStore.SaveVerificationToken(ctx, tok); err != nil {
		return outbox.Entry{}, err
	}
	return enqueueEmail(ctx, verificationEmail(acct, VerificationURL(deps.BaseURL, tok.Token)), deps.Mail)
}

// VerificationURL builds the link a registrant follows to confirm their address.
func VerificationURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/verify?token=" + url.QueryEscape(token)
}

func verificationEmail(acct account.Account, link string) outbox.EmailPayload {
	greeting := "Hello"
	if acct.Name != "" {
		greeting = "Hello " + acct.Name
	}
	return outbox.EmailPayload{
		To:      []string{acct.Email},
		Subject: "Confirm your email for the Investment Hub",
		HTML: fmt.Sprintf(`<p>%s,</p><p>Confirm your email address to finish creating your account:</p><p><a href="%s">Confirm email</a></p><p>The link expires in %d hours.</p>`,
			html.EscapeString(greeting), html.EscapeString(link), int(account.VerificationTTL.Hours())),
		Text: fmt.Sprintf("%s,\n\nConfirm your email address: %s\n\nThe link expires in %d hours.\n",
			greeting, link, int(account.VerificationTTL.Hours())),
		Kind: "verification",
	}
}

// AccountStoreForVerify defines the store interface needed by VerifyEmail.
type AccountStoreForVerify interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	GetVerificationToken(ctx context.Context, token string) (account.VerificationToken, error)
	SaveVerificationToken(ctx context.Context, t account.VerificationToken) error
	InvalidateTokensForAccount(ctx context.Context, accountID string) error
}

// VerifyEmailDeps holds dependencies for VerifyEmail.
type VerifyEmailDeps struct {
	AccountStore AccountStoreForVerify
	Now          func() time.Time
}

// ExecuteVerifyEmail redeems a verification token and activates its account.
// PRE: token came from a verification link
// POST: Account active; every token for it is spent
func ExecuteVerifyEmail(ctx context.Context, token string, deps VerifyEmailDeps) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", account.ErrTokenInvalid
	}
	tok, err := deps.AccountStore.GetVerificationToken(ctx, token)
	if err != nil {
		return "", account.ErrTokenInvalid
	}
	if err := tok.Check(deps.Now()); err != nil {
		slog.Info("auth_event", "event", "verification_rejected", "account_id", tok.AccountID, "reason", err)
		return "", err
	}

	acct, err := deps.AccountStore.GetByID(ctx, tok.AccountID)
	if err != nil {
		return "", err
	}
	if err := acct.MarkVerified(); err != nil && !errors.Is(err, account.ErrAlreadyVerified) {
		return "", err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}
	tok.Invalidate()
	if err := deps.AccountStore.SaveVerificationToken(ctx, tok); err != nil {
		return "", err
	}
	if err := deps.AccountStore.InvalidateTokensForAccount(ctx, acct.ID); err != nil {
		return "", err
	}

	slog.Info("auth_event", "event", "email_verified", "account_id", acct.ID)
	return acct.ID, nil
}
