package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NoopSender logs and records sends without delivering them.
// It backs local development and tests.
type NoopSender struct {
	mu   sync.Mutex
	sent []SendRequest
	fail error
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// FailWith makes subsequent sends return err; nil restores success.
func (s *NoopSender) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Send records the email but does not deliver it.
// POST: the request is appended to Sent unless a failure is configured
func (s *NoopSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return SendResult{}, s.fail
	}
	s.sent = append(s.sent, req)
	slog.Info("noop_email_send", "to", req.To, "subject", req.Subject, "tag", req.Tag)
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", len(s.sent)),
		SentAt:    time.Now(),
	}, nil
}

// Sent returns a copy of every recorded request.
func (s *NoopSender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendRequest(nil), s.sent...)
}
