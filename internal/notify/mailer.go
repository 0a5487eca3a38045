// Package notify is the outbound notification collaborator. Email is
// best-effort by contract: a failed send is logged by the caller and never
// rolls back the state transition that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Mailer sends one message. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RelayMailer posts messages to an HTTP mail relay. The relay owns SMTP,
// templating, and retry policy; this process only hands off.
type RelayMailer struct {
	client *resty.Client
	from   string
}

func NewRelayMailer(relayURL, from string) *RelayMailer {
	client := resty.New().
		SetBaseURL(relayURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2)
	return &RelayMailer{client: client, from: from}
}

func (m *RelayMailer) Send(ctx context.Context, to, subject, body string) error {
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"from":    m.from,
			"to":      to,
			"subject": subject,
			"body":    body,
		}).
		Post("/send")
	if err != nil {
		return fmt.Errorf("mail relay: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mail relay: status %d", resp.StatusCode())
	}
	return nil
}

// LogMailer writes the message to the log instead of sending it; used when
// no relay is configured (development, tests).
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info("mail suppressed (no relay configured)", "to", to, "subject", subject)
	return nil
}
