// Package notifx is the outbound notification port. The backoffice treats
// email delivery as an external collaborator: callers depend on the Notifier
// interface only, providers live in sub-packages.
package notifx

import (
	"context"

	"github.com/vendala/backoffice/pkg/errx"
)

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	From     string   `json:"from"`
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body,omitempty"`
	HTMLBody string   `json:"html_body,omitempty"`
}

// Notifier sends a single message.
type Notifier interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

var notifxErrors = errx.NewRegistry("NOTIFX")

var (
	ErrSendFailed     = notifxErrors.Register("SEND_FAILED", errx.TypeExternal, 502, "Failed to send email")
	ErrInvalidMessage = notifxErrors.Register("INVALID_MESSAGE", errx.TypeValidation, 400, "Invalid email message")
)

// Client wraps a provider with basic validation.
type Client struct {
	provider Notifier
}

// NewClient creates a new notification client.
func NewClient(provider Notifier) *Client {
	return &Client{provider: provider}
}

// SendEmail sends an email through the configured provider.
func (c *Client) SendEmail(ctx context.Context, msg EmailMessage) error {
	if len(msg.To) == 0 {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "no recipients")
	}
	if msg.Subject == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty subject")
	}
	return c.provider.SendEmail(ctx, msg)
}
