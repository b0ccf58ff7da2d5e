// Package mail sends transactional email through SendGrid. With no API key
// configured the mailer degrades to logging, so local stacks work without
// outbound mail.
package mail

import (
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"openpersona/internal/config"
)

// Mailer sends account emails.
type Mailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
	logger    *slog.Logger
}

// New constructs a Mailer. A nil client means mail is disabled.
func New(cfg config.MailConfig, logger *slog.Logger) *Mailer {
	m := &Mailer{
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
		logger:    logger,
	}
	if cfg.APIKey != "" {
		m.client = sendgrid.NewSendClient(cfg.APIKey)
	}
	return m
}

// SendPasswordReset delivers a reset link.
func (m *Mailer) SendPasswordReset(toEmail, toName, resetURL string) error {
	subject := "Reset your OpenPersona password"
	body := fmt.Sprintf(
		"Hi %s,\n\nWe received a request to reset your password. Open the link below within the next hour:\n\n%s\n\nIf you did not request this, ignore this email.",
		toName, resetURL,
	)
	return m.send(toEmail, toName, subject, body)
}

func (m *Mailer) send(toEmail, toName, subject, body string) error {
	if m.client == nil {
		m.logger.Info("mail disabled, dropping message",
			slog.String("to", toEmail),
			slog.String("subject", subject),
		)
		return nil
	}

	from := sgmail.NewEmail(m.fromName, m.fromEmail)
	to := sgmail.NewEmail(toName, toEmail)
	message := sgmail.NewSingleEmail(from, subject, to, body, "")

	resp, err := m.client.Send(message)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("send mail: sendgrid returned %d", resp.StatusCode)
	}
	return nil
}
