package email

import (
	"context"
	"time"
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string // Recipient email addresses
	From    string   // Sender address; empty uses the sender's default
	Subject string
	HTML    string
	Text    string // plain-text alternative
	ReplyTo string
	Tag     string // provider tag for analytics, e.g. "verification"
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender delivers a single email via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
