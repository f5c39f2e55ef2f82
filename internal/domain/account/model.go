package account

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Field limits and security parameters.
const (
	MaxEmailLength    = 254
	MaxNameLength     = 120
	MinPasswordLength = 12
	BcryptCost        = 12
	MaxFailedLogins   = 5
	LockoutDuration   = 15 * time.Minute
	VerificationTTL   = 72 * time.Hour
)

// Role constants
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Account status constants
const (
	StatusActive              = "active"
	StatusPendingVerification = "pending_verification"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RoleMember}

// Domain errors
var (
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrEmailTooLong     = errors.New("email cannot exceed 254 characters")
	ErrNameTooLong      = errors.New("name cannot exceed 120 characters")
	ErrInvalidRole      = errors.New("role must be one of: admin, member")
	ErrInvalidStatus    = errors.New("status must be one of: active, pending_verification")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrTokenExpired     = errors.New("verification link has expired")
	ErrTokenInvalid     = errors.New("verification token is invalid")
	ErrAlreadyVerified  = errors.New("email address is already verified")
)

// Account is a registered user of the hub. Members can contact the team and
// follow listings; admins additionally see operational pages.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Status       string // active, pending_verification
	CreatedAt    time.Time
	FailedLogins int
	LockedUntil  time.Time
}

// VerificationToken proves ownership of the email address an account registered with.
type VerificationToken struct {
	ID        string
	AccountID string
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	if len(a.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !isValidRole(a.Role) {
		return ErrInvalidRole
	}
	if a.Status != StatusActive && a.Status != StatusPendingVerification {
		return ErrInvalidStatus
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: plaintext is non-empty and >= MinPasswordLength characters
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), BcryptCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the account is locked out at now.
// INVARIANT: Account fields are not mutated
func (a *Account) IsLocked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account
// once MaxFailedLogins is reached.
// POST: FailedLogins incremented; LockedUntil set if the limit is reached
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= MaxFailedLogins {
		a.LockedUntil = now.Add(LockoutDuration)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
// POST: FailedLogins is 0, LockedUntil is zero
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// IsAdmin returns true if the account has admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsPendingVerification returns true until the email address is confirmed.
func (a *Account) IsPendingVerification() bool {
	return a.Status == StatusPendingVerification
}

// MarkVerified transitions the account from pending to active.
// PRE: Account is pending verification
// POST: Status is active
func (a *Account) MarkVerified() error {
	if a.Status == StatusActive {
		return ErrAlreadyVerified
	}
	if a.Status != StatusPendingVerification {
		return ErrInvalidStatus
	}
	a.Status = StatusActive
	return nil
}

// NewVerificationToken issues a random single-use token for accountID.
// PRE: accountID is non-empty
// POST: Token is 64 hex characters and expires VerificationTTL after now
func NewVerificationToken(id, accountID string, now time.Time) (VerificationToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return VerificationToken{}, err
	}
	return VerificationToken{
		ID:        id,
		AccountID: accountID,
		Token:     hex.EncodeToString(buf),
		ExpiresAt: now.Add(VerificationTTL),
		CreatedAt: now,
	}, nil
}

// IsExpired returns true if the token has expired at now.
// INVARIANT: Token fields are not mutated
func (t *VerificationToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Check reports why a token cannot be redeemed at now, if it cannot.
// POST: Returns nil, ErrTokenInvalid for used tokens, or ErrTokenExpired
func (t *VerificationToken) Check(now time.Time) error {
	if t.Used {
		return ErrTokenInvalid
	}
	if t.IsExpired(now) {
		return ErrTokenExpired
	}
	return nil
}

// Invalidate marks the token as used.
// POST: Used is set to true
func (t *VerificationToken) Invalidate() {
	t.Used = true
}

func isValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
