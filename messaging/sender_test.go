package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/pillapp/pillapp-api/config"
	"github.com/pillapp/pillapp-api/models"
)

type fakeMessages struct {
	params []*openapi.CreateMessageParams
	err    error
}

func (f *fakeMessages) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid, status := "SM123", "queued"
	return &openapi.ApiV2010Message{Sid: &sid, Status: &status}, nil
}

type fakeMail struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeMail) Send(email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status, Body: "rejected"}, nil
}

func TestNewPicksChannel(t *testing.T) {
	tests := []struct {
		channel string
		want    string
	}{
		{channel: config.ChannelWhatsApp, want: config.ChannelWhatsApp},
		{channel: config.ChannelSMS, want: config.ChannelSMS},
		{channel: config.ChannelEmail, want: config.ChannelEmail},
		{channel: "pigeon", want: config.ChannelWhatsApp},
	}

	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			s := New(config.Messaging{Channel: tt.channel})
			assert.Equal(t, tt.want, s.Channel())
			assert.False(t, s.IsConfigured())
		})
	}

	push := New(config.Messaging{Channel: config.ChannelPush})
	assert.Equal(t, config.ChannelPush, push.Channel())
	assert.True(t, push.IsConfigured())
}

func TestNewTwilioSenderConfigured(t *testing.T) {
	s := NewTwilioSender(config.Messaging{
		TwilioAccountSID:     "AC123",
		TwilioAuthToken:      "secret",
		TwilioWhatsAppNumber: "+14155238886",
	}, config.ChannelWhatsApp)

	assert.True(t, s.IsConfigured())
	assert.Equal(t, "whatsapp:+14155238886", s.from)
}

func TestTwilioSenderWhatsApp(t *testing.T) {
	api := &fakeMessages{}
	s := &TwilioSender{api: api, from: "whatsapp:+14155238886", channel: config.ChannelWhatsApp}

	err := s.SendReminder(context.Background(), "+5491112345678", "Ibuprofen", "400mg", "08:00")
	require.NoError(t, err)

	require.Len(t, api.params, 1)
	assert.Equal(t, "whatsapp:+5491112345678", *api.params[0].To)
	assert.Equal(t, "whatsapp:+14155238886", *api.params[0].From)
	assert.Contains(t, *api.params[0].Body, "Ibuprofen")
	assert.Contains(t, *api.params[0].Body, "400mg")
	assert.Contains(t, *api.params[0].Body, "08:00")
}

func TestTwilioSenderSMSKeepsNumber(t *testing.T) {
	api := &fakeMessages{}
	s := &TwilioSender{api: api, from: "+15005550006", channel: config.ChannelSMS}

	require.NoError(t, s.SendReminder(context.Background(), "+5491112345678", "Ibuprofen", "400mg", "08:00"))
	assert.Equal(t, "+5491112345678", *api.params[0].To)
}

func TestTwilioSenderErrors(t *testing.T) {
	s := &TwilioSender{channel: config.ChannelWhatsApp}
	assert.ErrorIs(t, s.SendReminder(context.Background(), "+1", "a", "b", "08:00"), ErrNotConfigured)

	api := &fakeMessages{err: errors.New("invalid number")}
	s = &TwilioSender{api: api, from: "whatsapp:+1", channel: config.ChannelWhatsApp}
	err := s.SendReminder(context.Background(), "+1", "a", "b", "08:00")
	assert.EqualError(t, err, "failed to send whatsapp reminder to whatsapp:+1: invalid number")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SendReminder(ctx, "+1", "a", "b", "08:00"), context.Canceled)
}

func TestTwilioRecipient(t *testing.T) {
	s := &TwilioSender{channel: config.ChannelWhatsApp}

	to, ok := s.Recipient(models.UserSummary{Phone: "+5491112345678"})
	assert.True(t, ok)
	assert.Equal(t, "+5491112345678", to)

	_, ok = s.Recipient(models.UserSummary{Email: "ana@example.com"})
	assert.False(t, ok)
}

func TestSendGridSender(t *testing.T) {
	client := &fakeMail{status: http.StatusAccepted}
	s := &SendGridSender{client: client, from: "reminders@pillapp.dev"}

	err := s.SendReminder(context.Background(), "ana@example.com", "Ibuprofen", "400mg", "08:00")
	require.NoError(t, err)

	require.Len(t, client.sent, 1)
	assert.Equal(t, "Time to take Ibuprofen (08:00)", client.sent[0].Subject)
	assert.Equal(t, "reminders@pillapp.dev", client.sent[0].From.Address)

	to, ok := s.Recipient(models.UserSummary{Email: "ana@example.com"})
	assert.True(t, ok)
	assert.Equal(t, "ana@example.com", to)
}

func TestSendGridSenderRejected(t *testing.T) {
	s := &SendGridSender{client: &fakeMail{status: http.StatusBadRequest}, from: "reminders@pillapp.dev"}

	err := s.SendReminder(context.Background(), "ana@example.com", "Ibuprofen", "400mg", "08:00")
	assert.EqualError(t, err, "sendgrid returned status 400: rejected")

	assert.ErrorIs(t, (&SendGridSender{}).SendReminder(context.Background(), "a@b.c", "x", "y", "08:00"), ErrNotConfigured)
}

func TestExpoSender(t *testing.T) {
	var got []ExpoPushMessage
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"ticket-1"}]}`))
	}))
	defer srv.Close()

	s := NewExpoSender(config.Messaging{ExpoPushURL: srv.URL, ExpoAccessToken: "expo-secret"})
	err := s.SendReminder(context.Background(), "ExponentPushToken[abc]", "Ibuprofen", "400mg", "08:00")
	require.NoError(t, err)

	assert.Equal(t, "Bearer expo-secret", auth)
	require.Len(t, got, 1)
	assert.Equal(t, "ExponentPushToken[abc]", got[0].To)
	assert.Equal(t, "Medication reminder", got[0].Title)
	assert.Contains(t, got[0].Body, "Ibuprofen")
	assert.Equal(t, "08:00", got[0].Data["time"])
}

func TestExpoSenderErrors(t *testing.T) {
	rejected := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"status":"error","message":"DeviceNotRegistered"}]}`))
	}))
	defer rejected.Close()

	s := NewExpoSender(config.Messaging{ExpoPushURL: rejected.URL})
	err := s.SendReminder(context.Background(), "ExponentPushToken[abc]", "a", "b", "08:00")
	assert.EqualError(t, err, "expo rejected push reminder to ExponentPushToken[abc]: DeviceNotRegistered")

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	s = NewExpoSender(config.Messaging{ExpoPushURL: failing.URL})
	err = s.SendReminder(context.Background(), "ExponentPushToken[abc]", "a", "b", "08:00")
	assert.EqualError(t, err, "expo push API returned status 502")
}

func TestExpoRecipient(t *testing.T) {
	s := NewExpoSender(config.Messaging{})

	to, ok := s.Recipient(models.UserSummary{PushToken: "ExponentPushToken[abc]"})
	assert.True(t, ok)
	assert.Equal(t, "ExponentPushToken[abc]", to)

	_, ok = s.Recipient(models.UserSummary{Phone: "+5491112345678"})
	assert.False(t, ok)
}
