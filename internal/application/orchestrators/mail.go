package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"investhub/internal/adapters/email"
	"investhub/internal/domain/outbox"
)

// OutboxWriter is the outbox capability needed to queue mail.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// MailDeps holds what an orchestrator needs to send mail through the outbox.
type MailDeps struct {
	Outbox     OutboxWriter
	Sender     email.Sender // optional; nil leaves entries for the retry scheduler
	GenerateID func() string
	Now        func() time.Time
}

// enqueueEmail persists an email entry and attempts delivery once.
// PRE: p is a valid payload
// POST: the entry is stored before any send; a failed send leaves it retrying
func enqueueEmail(ctx context.Context, p outbox.EmailPayload, deps MailDeps) (outbox.Entry, error) {
	entry, err := outbox.NewEmailEntry(deps.GenerateID(), p, deps.Now())
	if err != nil {
		return outbox.Entry{}, err
	}
	if err := deps.Outbox.Save(ctx, entry); err != nil {
		return outbox.Entry{}, err
	}
	if deps.Sender == nil {
		return entry, nil
	}

	if err := deliverEmail(ctx, &entry, deps.Sender, deps.Now()); err != nil {
		slog.Warn("outbox_send_deferred", "entry_id", entry.ID, "kind", p.Kind, "error", err)
	}
	if err := deps.Outbox.Save(ctx, entry); err != nil {
		slog.Error("outbox_save_failed", "entry_id", entry.ID, "error", err)
	}
	return entry, nil
}

// deliverEmail makes one delivery attempt for entry and records the outcome on it.
// PRE: entry.CanRetry()
// POST: entry is done, retrying, failed or abandoned (undecodable payload)
func deliverEmail(ctx context.Context, entry *outbox.Entry, sender email.Sender, now time.Time) error {
	p, err := entry.EmailPayload()
	if err != nil {
		entry.MarkAbandoned()
		entry.ErrorMessage = err.Error()
		return err
	}

	entry.MarkAttempt(now)
	res, err := sender.Send(ctx, email.SendRequest{
		To:      p.To,
		Subject: p.Subject,
		HTML:    p.HTML,
		Text:    p.Text,
		ReplyTo: p.ReplyTo,
		Tag:     p.Kind,
	})
	if err != nil {
		entry.MarkFailed(err)
		return err
	}
	entry.MarkSuccess(res.MessageID)
	return nil
}
