package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// sendTimeout bounds a single provider call so a slow API cannot hold a request open.
const sendTimeout = 10 * time.Second

// ResendSender sends email through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a sender with the given API key and default from address.
// PRE: apiKey is a Resend API key; from is a valid sender address
// POST: Returns a ready-to-use sender
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send delivers msg through Resend.
// PRE: msg passes Validate
// POST: The message is queued with Resend; returns its message ID
func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	from := msg.From
	if from == "" {
		from = s.from
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if msg.Tag != "" {
		params.Tags = []resend.Tag{{Name: "category", Value: msg.Tag}}
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	slog.InfoContext(ctx, "email_event", "event", "sent", "provider", "resend", "message_id", sent.Id, "tag", msg.Tag)
	return sent.Id, nil
}
