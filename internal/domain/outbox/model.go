package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status constants for outbox entry lifecycle.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// ActionTypeEmail is the only side effect the hub defers: outgoing mail.
const ActionTypeEmail = "email"

// DefaultMaxAttempts bounds delivery attempts per entry.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrNoRecipients    = errors.New("email needs at least one recipient")
	ErrEmptySubject    = errors.New("email subject is required")
)

// Entry is one deferred side effect, persisted before it is attempted so a
// crash or provider outage never loses it.
type Entry struct {
	ID              string
	ActionType      string
	Payload         string // JSON payload for replay
	Status          string // pending, retrying, done, failed, abandoned
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string // provider message ID once delivered
	ErrorMessage    string // last delivery error
}

// EmailPayload is the replayable body of an email entry.
type EmailPayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Kind    string   `json:"kind,omitempty"` // e.g. verification, contact_notification
}

// Validate checks the payload can be handed to an email provider.
func (p EmailPayload) Validate() error {
	if len(p.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range p.To {
		if !strings.Contains(to, "@") {
			return fmt.Errorf("invalid recipient %q", to)
		}
	}
	if strings.TrimSpace(p.Subject) == "" {
		return ErrEmptySubject
	}
	return nil
}

// NewEmailEntry wraps an email payload in a pending outbox entry.
// PRE: id is non-empty
// POST: Returns a validated pending entry, or the payload's validation error
func NewEmailEntry(id string, p EmailPayload, now time.Time) (Entry, error) {
	if err := p.Validate(); err != nil {
		return Entry{}, err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		ID:          id,
		ActionType:  ActionTypeEmail,
		Payload:     string(raw),
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
	}
	return e, e.Validate()
}

// EmailPayload decodes the entry's payload.
// PRE: ActionType is email
func (e *Entry) EmailPayload() (EmailPayload, error) {
	var p EmailPayload
	if e.ActionType != ActionTypeEmail {
		return p, fmt.Errorf("entry %s is a %s action, not email", e.ID, e.ActionType)
	}
	if err := json.Unmarshal([]byte(e.Payload), &p); err != nil {
		return p, fmt.Errorf("decode email payload: %w", err)
	}
	return p, nil
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid; a zero MaxAttempts is set to the default
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// CanRetry returns true while the entry is open and has attempts left.
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying) && e.Attempts < e.MaxAttempts
}

// IsTerminal returns true for done, failed and abandoned entries.
func (e *Entry) IsTerminal() bool {
	return e.Status == StatusDone || e.Status == StatusFailed || e.Status == StatusAbandoned
}

// Due reports whether the backoff since the last attempt has elapsed at now.
// POST: never-attempted entries are always due
func (e *Entry) Due(now time.Time, baseDelay, maxDelay time.Duration) bool {
	if e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay)))
}

// MarkAttempt records a delivery attempt.
// PRE: CanRetry is true
// POST: Attempts incremented, LastAttemptedAt is now, status retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry as delivered.
// POST: Status done, ExternalID recorded, error cleared
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records a delivery error.
// POST: ErrorMessage set; status failed once attempts are exhausted, otherwise unchanged
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// MarkAbandoned stops an entry from being retried.
// POST: Status abandoned
func (e *Entry) MarkAbandoned() {
	e.Status = StatusAbandoned
}

// NextRetryDelay calculates the delay before the next attempt:
// baseDelay * 2^attempts, capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay time.Duration, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}
