package contact

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Field limits for contact submissions.
const (
	MaxNameLength         = 120
	MaxEmailLength        = 254
	MaxOrganisationLength = 200
	MaxSubjectLength      = 200
	MaxMessageLength      = 5000
)

// Domain errors
var (
	ErrEmptyName     = errors.New("name is required")
	ErrEmptyEmail    = errors.New("email is required")
	ErrInvalidEmail  = errors.New("email must contain '@'")
	ErrEmptyMessage  = errors.New("message is required")
	ErrFieldTooLong  = errors.New("a field exceeds its maximum length")
	ErrSpamSuspected = errors.New("submission rejected")
)

// Submission is one message sent through the public contact form.
type Submission struct {
	ID           string
	Name         string
	Email        string
	Organisation string
	Subject      string
	Message      string
	AccountID    string // set when the sender was signed in
	CreatedAt    time.Time
}

// Normalize trims every text field.
// POST: returned copy has no leading or trailing whitespace in its fields
func (s Submission) Normalize() Submission {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Organisation = strings.TrimSpace(s.Organisation)
	s.Subject = strings.TrimSpace(s.Subject)
	s.Message = strings.TrimSpace(s.Message)
	return s
}

// Validate checks required fields and length caps.
// PRE: Submission has been normalized
// POST: Returns nil if valid, the first violated rule otherwise
func (s *Submission) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if s.Email == "" {
		return ErrEmptyEmail
	}
	if !strings.Contains(s.Email, "@") {
		return ErrInvalidEmail
	}
	if s.Message == "" {
		return ErrEmptyMessage
	}
	if len(s.Name) > MaxNameLength ||
		len(s.Email) > MaxEmailLength ||
		len(s.Organisation) > MaxOrganisationLength ||
		len(s.Subject) > MaxSubjectLength ||
		len(s.Message) > MaxMessageLength {
		return ErrFieldTooLong
	}
	return nil
}

// SubjectLine returns the subject, or a default naming the sender.
func (s *Submission) SubjectLine() string {
	if s.Subject != "" {
		return s.Subject
	}
	return fmt.Sprintf("Investment hub enquiry from %s", s.Name)
}
