package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port           string
	APIBaseURL     string
	DBConn         string
	LogLevel       string
	EncryptionKey  string
	TokenFile      string
	SessionRefresh string
	RequestTimeout time.Duration

	GCSBucket          string
	GCSCredentialsJSON string
	SlipMaxWidth       int

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	BusinessName    string
	BusinessAddress string
	PhoneRegion     string
	TimeZone        string
}

// NewConfig loads configuration from environment variables, reading a .env file first if present
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		APIBaseURL:     getEnv("API_BASE_URL", ""),
		DBConn:         getEnv("DB_CONN", ""),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
		TokenFile:      getEnv("TOKEN_FILE", defaultTokenFile()),
		SessionRefresh: getEnv("SESSION_REFRESH", "@every 5m"),

		GCSBucket:          getEnv("GCS_BUCKET", ""),
		GCSCredentialsJSON: getEnv("GCS_CREDENTIALS_JSON", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", ""),

		BusinessName:    getEnv("BUSINESS_NAME", "Evergreen Foods"),
		BusinessAddress: getEnv("BUSINESS_ADDRESS", ""),
		PhoneRegion:     getEnv("PHONE_REGION", "IN"),
		TimeZone:        getEnv("TIME_ZONE", "Asia/Kolkata"),
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = timeout

	width, err := strconv.Atoi(getEnv("SLIP_MAX_WIDTH", "1280"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLIP_MAX_WIDTH: %w", err)
	}
	cfg.SlipMaxWidth = width

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if cfg.SMTPHost != "" && cfg.SenderEmail == "" {
		return nil, fmt.Errorf("SENDER_EMAIL is required when SMTP_HOST is set")
	}

	return cfg, nil
}

// Location resolves TimeZone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".field-ledger-token"
	}
	return dir + "/field-ledger/token"
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
