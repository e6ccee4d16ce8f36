// Package notify sends transactional email. Delivery is fire-and-forget:
// callers enqueue a Message on a Dispatcher and never wait for the provider.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers a single message synchronously and returns the provider's id.
type Mailer interface {
	Send(ctx context.Context, from string, msg Message) (string, error)
}

// ResendMailer delivers through the Resend API.
type ResendMailer struct {
	client *resend.Client
}

// NewResendMailer constructs a ResendMailer authenticated with apiKey.
// An empty baseURL uses the public Resend API.
func NewResendMailer(apiKey, baseURL string) (*ResendMailer, error) {
	client := resend.NewClient(apiKey)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("notify.NewResendMailer: base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendMailer{client: client}, nil
}

// Send posts the message to Resend.
func (m *ResendMailer) Send(ctx context.Context, from string, msg Message) (string, error) {
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("notify.ResendMailer.Send: %w", err)
	}
	return sent.Id, nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no email API key is configured.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs the message and reports success.
func (m LogMailer) Send(ctx context.Context, from string, msg Message) (string, error) {
	m.Logger.InfoContext(ctx, "email (not sent)", "from", from, "to", msg.To, "subject", msg.Subject)
	return "", nil
}
