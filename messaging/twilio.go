package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/config"
	"github.com/pillapp/pillapp-api/models"
)

const whatsappPrefix = "whatsapp:"

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender sends reminders as WhatsApp or SMS messages through Twilio
type TwilioSender struct {
	api     messageCreator
	from    string
	channel string
}

// NewTwilioSender reads the Twilio credentials for channel once. Without an
// account SID, auth token and sender number the returned sender reports
// itself as not configured.
func NewTwilioSender(cfg config.Messaging, channel string) *TwilioSender {
	from := cfg.TwilioSMSNumber
	if channel == config.ChannelWhatsApp {
		from = cfg.TwilioWhatsAppNumber
		if from != "" && !strings.HasPrefix(from, whatsappPrefix) {
			from = whatsappPrefix + from
		}
	}

	s := &TwilioSender{from: from, channel: channel}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || from == "" {
		zap.S().Warnw("twilio credentials not configured, reminders disabled", "channel", channel)
		return s
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	s.api = client.Api
	zap.S().Infow("twilio client initialized", "channel", channel, "from", from)
	return s
}

func (s *TwilioSender) IsConfigured() bool {
	return s.api != nil
}

func (s *TwilioSender) Channel() string {
	return s.channel
}

func (s *TwilioSender) Recipient(user models.UserSummary) (string, bool) {
	if user.Phone == "" {
		return "", false
	}
	return user.Phone, true
}

func (s *TwilioSender) SendReminder(ctx context.Context, to, medication, dosage, timeOfDay string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.channel == config.ChannelWhatsApp {
		to = whatsappPrefix + to
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(ReminderText(medication, dosage, timeOfDay))

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send %s reminder to %s: %w", s.channel, to, err)
	}

	var sid, status string
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	if resp != nil && resp.Status != nil {
		status = *resp.Status
	}
	zap.S().Debugw("twilio message created", "to", to, "sid", sid, "status", status)
	return nil
}
