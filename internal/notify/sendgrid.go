package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"volunteerhub/internal/log"
	"volunteerhub/internal/metrics"
)

// SendGridSender delivers notifications as email through SendGrid
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    zerolog.Logger
}

func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		logger:    log.WithComponent("notify"),
	}
}

// Send renders the template and sends a single email to address
func (s *SendGridSender) Send(ctx context.Context, address, template string, data map[string]any) error {
	msg, err := Render(template, data)
	if err != nil {
		return err
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", address)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Plain, msg.HTML)

	response, err := s.client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("failed to send email to %s: %d", address, response.StatusCode)
	}
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(template, "failed").Inc()
		return err
	}

	metrics.NotificationsTotal.WithLabelValues(template, "sent").Inc()
	s.logger.Debug().Str("template", template).Str("to", address).Msg("Email sent")
	return nil
}

// LogSender writes notifications to the log instead of delivering them. It is
// used when no SendGrid API key is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender() *LogSender {
	return &LogSender{logger: log.WithComponent("notify")}
}

func (s *LogSender) Send(ctx context.Context, address, template string, data map[string]any) error {
	msg, err := Render(template, data)
	if err != nil {
		return err
	}
	metrics.NotificationsTotal.WithLabelValues(template, "logged").Inc()
	s.logger.Info().
		Str("template", template).
		Str("to", address).
		Str("subject", msg.Subject).
		Msg("Notification not delivered, no email provider configured")
	return nil
}
