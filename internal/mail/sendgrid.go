package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// SendGridTransport implements Transport using the SendGrid v3 API.
type SendGridTransport struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
	logger    *zap.Logger
}

// NewSendGridTransport creates a SendGrid-backed transport.
func NewSendGridTransport(apiKey, fromName, fromEmail string, logger *zap.Logger) *SendGridTransport {
	return &SendGridTransport{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		logger:    logger,
	}
}

// Send delivers one email through SendGrid.
func (t *SendGridTransport) Send(ctx context.Context, toName, toEmail, subject, html string) (string, error) {
	from := sgmail.NewEmail(t.fromName, t.fromEmail)
	to := sgmail.NewEmail(toName, toEmail)
	message := sgmail.NewSingleEmail(from, subject, to, "", html)

	resp, err := t.client.SendWithContext(ctx, message)
	if err != nil {
		return "", fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	messageID := resp.Headers["X-Message-Id"]
	id := ""
	if len(messageID) > 0 {
		id = messageID[0]
	}

	t.logger.Info("email sent",
		zap.String("subject", subject),
		zap.String("message_id", id),
	)

	return id, nil
}

// LogTransport is a development fallback that logs instead of sending. Used
// when no SendGrid API key is configured.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport creates a log-only transport.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Send logs the message and reports success.
func (t *LogTransport) Send(ctx context.Context, toName, toEmail, subject, html string) (string, error) {
	t.logger.Info("email suppressed (no transport configured)",
		zap.String("to", toEmail),
		zap.String("subject", subject),
	)
	return "log-only", nil
}
