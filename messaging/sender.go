// Package messaging delivers dose reminders through an external provider.
package messaging

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/config"
	"github.com/pillapp/pillapp-api/models"
)

// ErrNotConfigured is returned by SendReminder when the provider credentials are missing
var ErrNotConfigured = errors.New("messaging provider is not configured")

// Sender delivers a reminder for one dose to one recipient
type Sender interface {
	// IsConfigured reports whether credentials were supplied at construction
	IsConfigured() bool
	Channel() string
	// Recipient returns the address of user on this channel, false when the
	// user cannot be reached through it
	Recipient(user models.UserSummary) (string, bool)
	SendReminder(ctx context.Context, to, medication, dosage, timeOfDay string) error
}

// ReminderText is the message body sent on text channels
func ReminderText(medication, dosage, timeOfDay string) string {
	return fmt.Sprintf("*Medication reminder*\n\nIt is time to take your medication:\n%s\nDosage: %s\nScheduled time: %s\n\nDon't forget to take it!",
		medication, dosage, timeOfDay)
}

// New builds the sender for the configured channel. An unknown channel falls
// back to WhatsApp.
func New(cfg config.Messaging) Sender {
	switch cfg.Channel {
	case config.ChannelEmail:
		return NewSendGridSender(cfg)
	case config.ChannelSMS:
		return NewTwilioSender(cfg, config.ChannelSMS)
	case config.ChannelWhatsApp:
		return NewTwilioSender(cfg, config.ChannelWhatsApp)
	case config.ChannelPush:
		return NewExpoSender(cfg)
	default:
		zap.S().Warnw("unknown messaging channel, using whatsapp", "channel", cfg.Channel)
		return NewTwilioSender(cfg, config.ChannelWhatsApp)
	}
}
