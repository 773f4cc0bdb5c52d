package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoopSender logs messages instead of delivering them.
type NoopSender struct{}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send validates and logs msg.
// PRE: none
// POST: Returns a noop- message ID when msg is valid; nothing leaves the process
func (s *NoopSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "email_event", "event", "noop_send", "to", msg.To, "subject", msg.Subject, "tag", msg.Tag)
	return fmt.Sprintf("noop-%d", time.Now().UnixNano()), nil
}
