package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/config"
	"github.com/pillapp/pillapp-api/models"
)

const (
	expoTokenPrefix = "ExponentPushToken["
	expoTimeout     = 15 * time.Second
)

// ExpoPushMessage represents a single push notification message for the Expo push API
type ExpoPushMessage struct {
	To        string                 `json:"to"`
	Title     string                 `json:"title,omitempty"`
	Body      string                 `json:"body,omitempty"`
	Sound     string                 `json:"sound,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Priority  string                 `json:"priority,omitempty"`
	ChannelID string                 `json:"channelId,omitempty"`
}

type expoTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

type expoResponse struct {
	Data []expoTicket `json:"data"`
}

// ExpoSender delivers reminders as push notifications to the Expo app of the user
type ExpoSender struct {
	client      *http.Client
	url         string
	accessToken string
}

// NewExpoSender builds a push sender. The access token is optional, Expo
// accepts unauthenticated pushes unless enhanced security is enabled.
func NewExpoSender(cfg config.Messaging) *ExpoSender {
	url := cfg.ExpoPushURL
	if url == "" {
		url = "https://exp.host/--/api/v2/push/send"
	}
	zap.S().Infow("expo push sender initialized", "url", url, "authenticated", cfg.ExpoAccessToken != "")
	return &ExpoSender{
		client:      &http.Client{Timeout: expoTimeout},
		url:         url,
		accessToken: cfg.ExpoAccessToken,
	}
}

func (s *ExpoSender) IsConfigured() bool {
	return s.url != ""
}

func (s *ExpoSender) Channel() string {
	return config.ChannelPush
}

func (s *ExpoSender) Recipient(user models.UserSummary) (string, bool) {
	if !strings.HasPrefix(user.PushToken, expoTokenPrefix) {
		return "", false
	}
	return user.PushToken, true
}

func (s *ExpoSender) SendReminder(ctx context.Context, to, medication, dosage, timeOfDay string) error {
	messages := []ExpoPushMessage{{
		To:        to,
		Title:     "Medication reminder",
		Body:      fmt.Sprintf("Time to take %s (%s), scheduled at %s", medication, dosage, timeOfDay),
		Sound:     "default",
		Data:      map[string]interface{}{"medication": medication, "dosage": dosage, "time": timeOfDay},
		Priority:  "high",
		ChannelID: "default",
	}}

	jsonData, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push reminder to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo push API returned status %d", resp.StatusCode)
	}

	var body expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode expo push response: %w", err)
	}
	for _, ticket := range body.Data {
		if ticket.Status != "ok" {
			return fmt.Errorf("expo rejected push reminder to %s: %s", to, ticket.Message)
		}
		zap.S().Debugw("expo push ticket created", "to", to, "ticket", ticket.ID)
	}
	return nil
}
