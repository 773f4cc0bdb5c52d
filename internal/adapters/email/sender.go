package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Message is a single transactional email to one recipient.
type Message struct {
	To      string
	From    string // empty uses the sender's default
	Subject string
	HTML    string
	Text    string // plain-text alternative
	Tag     string // delivery category, e.g. "welcome"
}

// Validate checks that the message can be handed to a provider.
// PRE: none
// POST: Returns nil when To parses as an address and Subject and a body are present
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("email subject is required")
	}
	if m.HTML == "" && m.Text == "" {
		return errors.New("email body is required")
	}
	return nil
}

// Sender delivers transactional email and returns the provider's message ID.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}
