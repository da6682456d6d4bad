package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // clinic timezone must resolve in minimal images

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	ClinicTimezone string

	// Calendar backend: "google" or "memory".
	CalendarBackend          string
	GoogleCalendarID         string
	GoogleCredentialsFile    string
	GoogleCredentialsJSON    string
	GoogleImpersonateSubject string

	AppointmentTypesFile string
	MinAdvanceBooking    time.Duration
	MaxAdvanceBooking    time.Duration
	VacationKeyword      string
	HolidaysEnabled      bool
	AlternativeDays      int

	RedisURL    string
	SlotLockTTL time.Duration

	TwilioEnabled    bool
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	WebhookJWTSecret string
	RateLimitRPS     float64
	RateLimitBurst   int
	MetricsEnabled   bool

	CORSAllowedOrigins []string
	// OperatorToken guards the operator endpoints; empty leaves them open.
	OperatorToken  string
	WebhookLogSize int
}

// Load reads configuration from environment variables, after loading a
// .env file when one is present.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "Europe/Bratislava"),

		CalendarBackend:          strings.ToLower(strings.TrimSpace(getEnv("CALENDAR_BACKEND", "google"))),
		GoogleCalendarID:         getEnv("GOOGLE_CALENDAR_ID", ""),
		GoogleCredentialsFile:    getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON:    getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		GoogleImpersonateSubject: getEnv("GOOGLE_IMPERSONATE_SUBJECT", ""),

		AppointmentTypesFile: getEnv("APPOINTMENT_TYPES_FILE", ""),
		MinAdvanceBooking:    getEnvAsDuration("MIN_ADVANCE_BOOKING", time.Hour),
		MaxAdvanceBooking:    getEnvAsDuration("MAX_ADVANCE_BOOKING", 720*time.Hour),
		VacationKeyword:      getEnv("VACATION_KEYWORD", "DOVOLENKA"),
		HolidaysEnabled:      getEnvAsBool("HOLIDAYS_ENABLED", true),
		AlternativeDays:      getEnvAsInt("ALTERNATIVE_DAYS", 5),

		RedisURL:    getEnv("REDIS_URL", ""),
		SlotLockTTL: getEnvAsDuration("SLOT_LOCK_TTL", 10*time.Second),

		TwilioEnabled:    getEnvAsBool("TWILIO_ENABLED", false),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		WebhookJWTSecret: getEnv("WEBHOOK_JWT_SECRET", ""),
		RateLimitRPS:     getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:   getEnvAsInt("RATE_LIMIT_BURST", 20),
		MetricsEnabled:   getEnvAsBool("METRICS_ENABLED", true),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		OperatorToken:      getEnv("OPERATOR_TOKEN", ""),
		WebhookLogSize:     getEnvAsInt("WEBHOOK_LOG_SIZE", 100),
	}
}

// Location loads the clinic timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("config: CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}

// SMSEnabled reports whether Twilio is switched on and fully configured.
func (c *Config) SMSEnabled() bool {
	return c.TwilioEnabled && c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.CalendarBackend {
	case "memory":
	case "google":
		if c.GoogleCalendarID == "" {
			errs = append(errs, errors.New("GOOGLE_CALENDAR_ID is required for the google backend"))
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			errs = append(errs, errors.New("GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON is required for the google backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("CALENDAR_BACKEND must be google or memory, got %q", c.CalendarBackend))
	}
	if c.MinAdvanceBooking < 0 {
		errs = append(errs, errors.New("MIN_ADVANCE_BOOKING must not be negative"))
	}
	if c.MaxAdvanceBooking <= c.MinAdvanceBooking {
		errs = append(errs, errors.New("MAX_ADVANCE_BOOKING must exceed MIN_ADVANCE_BOOKING"))
	}
	if c.AlternativeDays < 0 {
		errs = append(errs, errors.New("ALTERNATIVE_DAYS must not be negative"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
