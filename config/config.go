package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/models"
)

// Messaging channels
const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
	ChannelPush     = "push"
)

// Messaging holds the reminder provider settings
type Messaging struct {
	Channel              string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	TwilioSMSNumber      string
	SendGridAPIKey       string
	SendGridFromEmail    string
	ExpoAccessToken      string
	ExpoPushURL          string
}

// Config holds the project config values
type Config struct {
	URL            string
	DatabaseName   string
	BaseURL        string
	Port           string
	Env            string
	CORSOrigins    []string
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
	Location       *time.Location
	ReminderCron   string
	ResetCron      string
	ExpiryCron     string
	Dedupe         bool
	PollTimeout    time.Duration
	Messaging      Messaging
}

// New sets up all config related services. Values already present in the
// environment win over the ones in an optional .env file.
func New() *Config {
	_ = godotenv.Load()

	env := getenv("ENV", "local")
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:            os.Getenv("DB_URI"),
		DatabaseName:   os.Getenv("DB_NAME"),
		BaseURL:        os.Getenv("BASE_URL"),
		Port:           getenv("PORT", "3000"),
		Env:            env,
		CORSOrigins:    splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 10),
		Location:       getLocation("TZ_LOCATION"),
		ReminderCron:   getenv("REMINDER_CRON", "* * * * *"),
		ResetCron:      getenv("RESET_CRON", "0 0 * * *"),
		ExpiryCron:     getenv("EXPIRY_CRON", "5 0 * * *"),
		Dedupe:         getBool("REMINDER_DEDUPE", true),
		PollTimeout:    getDuration("POLL_TIMEOUT", 50*time.Second),
		Messaging: Messaging{
			Channel:              strings.ToLower(getenv("MESSAGING_CHANNEL", ChannelWhatsApp)),
			TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
			TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
			TwilioSMSNumber:      os.Getenv("TWILIO_SMS_NUMBER"),
			SendGridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
			SendGridFromEmail:    os.Getenv("SENDGRID_FROM_EMAIL"),
			ExpoAccessToken:      os.Getenv("EXPO_ACCESS_TOKEN"),
			ExpoPushURL:          getenv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
		},
	}
}

// AuthEnabled reports whether requests to the api must carry credentials
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		zap.S().Warnw("invalid integer in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		zap.S().Warnw("invalid number in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		zap.S().Warnw("invalid boolean in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		zap.S().Warnw("invalid duration in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func getLocation(key string) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		zap.S().Warnw("unknown time zone, using local time", "key", key, "value", name, "error", err)
		return time.Local
	}
	return loc
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().Errorw(message, "status", httpStatusCode, "error", err)

	body := models.Envelope{Success: false, Message: message}
	if err != nil {
		body.Error = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(body)
}
