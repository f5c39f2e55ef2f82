package orchestrators

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"investhub/internal/domain/contact"
	"investhub/internal/domain/outbox"
)

// ContactStoreForSubmit defines the store interface needed by SubmitContact.
type ContactStoreForSubmit interface {
	Save(ctx context.Context, s contact.Submission) error
}

// SubmitContactInput carries the contact form.
type SubmitContactInput struct {
	Name         string
	Email        string
	Organisation string
	Subject      string
	Message      string
	Website      string // honeypot field; humans leave it empty
	AccountID    string
}

// SubmitContactDeps holds dependencies for SubmitContact.
type SubmitContactDeps struct {
	ContactStore ContactStoreForSubmit
	Mail         MailDeps
	Inbox        []string // team addresses notified of each submission
}

// ExecuteSubmitContact stores a contact form submission and notifies the team.
// PRE: none; input is untrusted
// POST: Submission stored and a notification queued when Inbox is set
func ExecuteSubmitContact(ctx context.Context, input SubmitContactInput, deps SubmitContactDeps) (string, error) {
	if strings.TrimSpace(input.Website) != "" {
		slog.Warn("contact_spam_rejected", "email", input.Email)
		return "", contact.ErrSpamSuspected
	}

	sub := contact.Submission{
		ID:           deps.Mail.GenerateID(),
		Name:         input.Name,
		Email:        input.Email,
		Organisation: input.Organisation,
		Subject:      input.Subject,
		Message:      input.Message,
		AccountID:    input.AccountID,
		CreatedAt:    deps.Mail.Now(),
	}.Normalize()
	if err := sub.Validate(); err != nil {
		return "", err
	}
	if err := deps.ContactStore.Save(ctx, sub); err != nil {
		return "", err
	}

	if len(deps.Inbox) > 0 {
		if _, err := enqueueEmail(ctx, contactNotification(sub, deps.Inbox), deps.Mail); err != nil {
			return "", err
		}
	}

	slog.Info("contact_submitted", "submission_id", sub.ID, "signed_in", sub.AccountID != "")
	return sub.ID, nil
}

func contactNotification(sub contact.Submission, inbox []string) outbox.EmailPayload {
	org := sub.Organisation
	if org == "" {
		org = "-"
	}
	return outbox.EmailPayload{
		To:      inbox,
		Subject: sub.SubjectLine(),
		ReplyTo: sub.Email,
		HTML: fmt.Sprintf(`<p><strong>From:</strong> %s &lt;%s&gt;</p><p><strong>Organisation:</strong> %s</p><p>%s</p>`,
			html.EscapeString(sub.Name), html.EscapeString(sub.Email), html.EscapeString(org),
			strings.ReplaceAll(html.EscapeString(sub.Message), "\n", "<br>")),
		Text: fmt.Sprintf("From: %s <%s>\nOrganisation: %s\n\n%s\n", sub.Name, sub.Email, org, sub.Message),
		Kind: "contact_notification",
	}
}
