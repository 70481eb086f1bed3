package messaging

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/config"
	"github.com/pillapp/pillapp-api/models"
	templates "github.com/pillapp/pillapp-api/templates/html"
)

const senderName = "PillApp"

type mailClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender sends reminders by email through SendGrid
type SendGridSender struct {
	client mailClient
	from   string
}

// NewSendGridSender reads the SendGrid api key and sender address once
func NewSendGridSender(cfg config.Messaging) *SendGridSender {
	s := &SendGridSender{from: cfg.SendGridFromEmail}
	if cfg.SendGridAPIKey == "" || cfg.SendGridFromEmail == "" {
		zap.S().Warnw("sendgrid credentials not configured, reminders disabled")
		return s
	}
	s.client = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	zap.S().Infow("sendgrid client initialized", "from", cfg.SendGridFromEmail)
	return s
}

func (s *SendGridSender) IsConfigured() bool {
	return s.client != nil
}

func (s *SendGridSender) Channel() string {
	return config.ChannelEmail
}

func (s *SendGridSender) Recipient(user models.UserSummary) (string, bool) {
	if user.Email == "" {
		return "", false
	}
	return user.Email, true
}

func (s *SendGridSender) SendReminder(ctx context.Context, to, medication, dosage, timeOfDay string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Time to take %s (%s)", medication, timeOfDay)
	message := mail.NewSingleEmail(
		mail.NewEmail(senderName, s.from),
		subject,
		mail.NewEmail("", to),
		ReminderText(medication, dosage, timeOfDay),
		templates.RenderReminderEmail(medication, dosage, timeOfDay),
	)

	response, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email reminder to %s: %w", to, err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
