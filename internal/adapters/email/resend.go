package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a new ResendSender with the given API key and default from address.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
// POST: Returns a ready-to-use sender
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send sends a single email via Resend.
// PRE: req has at least one recipient and a subject
// POST: Email is queued for delivery; returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	params := s.buildRequest(req)

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		slog.Error("resend_send_failed", "error", err, "to", req.To, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}

	slog.Info("resend_sent", "message_id", sent.Id, "to", req.To, "tag", req.Tag)
	return SendResult{
		MessageID: sent.Id,
		SentAt:    time.Now(),
	}, nil
}

func (s *ResendSender) buildRequest(req SendRequest) *resend.SendEmailRequest {
	from := req.From
	if from == "" {
		from = s.from
	}
	params := &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		Text:    req.Text,
	}
	if req.ReplyTo != "" {
		params.ReplyTo = req.ReplyTo
	}
	if req.Tag != "" {
		params.Tags = []resend.Tag{{Name: "kind", Value: req.Tag}}
	}
	return params
}
