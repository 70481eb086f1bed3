package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pillapp/pillapp-api/messaging"
	"github.com/pillapp/pillapp-api/models"
)

// Reminder exposes the messaging sender for inspection and manual sends
type Reminder struct {
	Sender messaging.Sender
	Hub    *ReminderHub
}

type reminderConfig struct {
	Configured bool   `json:"configured"`
	Channel    string `json:"channel"`
	Clients    int    `json:"feedClients"`
}

type testReminderRequest struct {
	To         string `json:"to" validate:"required"`
	Medication string `json:"medication" validate:"required"`
	Dosage     string `json:"dosage" validate:"required"`
	Time       string `json:"time" validate:"omitempty,hhmm"`
}

// ConfigHandler reports whether reminders can be delivered
func (h Reminder) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg := reminderConfig{
		Configured: h.Sender.IsConfigured(),
		Channel:    h.Sender.Channel(),
	}
	if h.Hub != nil {
		cfg.Clients = h.Hub.Clients()
	}

	message := fmt.Sprintf("%s reminders are configured", cfg.Channel)
	if !cfg.Configured {
		message = fmt.Sprintf("%s reminders are not configured", cfg.Channel)
	}
	ok(w, message, cfg)
}

// TestReminderHandler sends one reminder right away
func (h Reminder) TestReminderHandler(w http.ResponseWriter, r *http.Request) {
	var req testReminderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, "invalid reminder", err)
		return
	}
	if !h.Sender.IsConfigured() {
		writeError(w, r, "cannot send reminder", models.NewValidationError(messaging.ErrNotConfigured.Error()))
		return
	}
	if req.Time == "" {
		req.Time = models.FormatTimeOfDay(time.Now())
	}

	if err := h.Sender.SendReminder(r.Context(), req.To, req.Medication, req.Dosage, req.Time); err != nil {
		writeError(w, r, "failed to send reminder", err)
		return
	}
	ok(w, fmt.Sprintf("reminder sent to %s", req.To), nil)
}
