// Package config reads runtime settings from the environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const EnvDevelopment = "development"

type Config struct {
	AppEnv  string
	Release string
	Port    string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	RunMigrations     bool
	SentryDSN         string
	CloudinaryURL     string
	RedisURL          string
	CronSecret        string
	MessageRetention  time.Duration
	CleanupBatchSize  int

	Auth  AuthConfig
	OTP   OTPConfig
	Mail  MailConfig
	Admin AdminConfig
}

type AuthConfig struct {
	JWTSecret              string
	SessionTTL             time.Duration
	ElevatedTTL            time.Duration
	LoginRateLimitMax      int
	LoginRateLimitWindow   time.Duration
	ContactRateLimitMax    int
	ContactRateLimitWindow time.Duration
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	KeyPrefix   string
}

type MailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
	// Inbox receives contact-form alerts; defaults to the admin email.
	Inbox        string
}

type AdminConfig struct {
	Username string
	Email    string
	Password string
}

type Options struct {
	LoadDotEnv bool
}

func Load(options Options) (Config, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}
	if len(jwtSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}

	cfg := Config{
		AppEnv:            envOrDefault("APP_ENV", EnvDevelopment),
		Release:           os.Getenv("RELEASE"),
		Port:              envOrDefault("PORT", "8080"),
		DatabaseURL:       databaseURL,
		DBMaxOpenConns:    envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleTime: envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
		RunMigrations:     EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", true),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		CloudinaryURL:     strings.TrimSpace(os.Getenv("CLOUDINARY_URL")),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		CronSecret:        strings.TrimSpace(os.Getenv("CRON_SECRET")),
		MessageRetention:  envDaysOrDefault("MESSAGE_RETENTION_DAYS", 180),
		CleanupBatchSize:  envIntOrDefault("MESSAGE_CLEANUP_BATCH_SIZE", 500),
		Auth: AuthConfig{
			JWTSecret:              jwtSecret,
			SessionTTL:             envHoursOrDefault("SESSION_TTL_HOURS", 15*24),
			ElevatedTTL:            envMinutesOrDefault("ELEVATED_TTL_MINUTES", 30),
			LoginRateLimitMax:      envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
			LoginRateLimitWindow:   envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),
			ContactRateLimitMax:    envIntOrDefault("CONTACT_RATE_LIMIT_MAX", 3),
			ContactRateLimitWindow: envSecondsOrDefault("CONTACT_RATE_LIMIT_WINDOW_SECONDS", 600),
		},
		OTP: OTPConfig{
			TTL:         envMinutesOrDefault("OTP_TTL_MINUTES", 5),
			MaxAttempts: envNonNegativeIntOrDefault("OTP_MAX_ATTEMPTS", 5),
			KeyPrefix:   envOrDefault("OTP_KEY_PREFIX", "otp"),
		},
		Mail: MailConfig{
			SMTPHost:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
			SMTPPort:     envIntOrDefault("SMTP_PORT", 587),
			SMTPUser:     os.Getenv("SMTP_USER"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			From:         strings.TrimSpace(os.Getenv("MAIL_FROM")),
			Inbox:        strings.TrimSpace(os.Getenv("CONTACT_INBOX")),
		},
		Admin: AdminConfig{
			Username: strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
			Email:    strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
			Password: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),
		},
	}

	if cfg.Mail.Inbox == "" {
		cfg.Mail.Inbox = cfg.Admin.Email
	}

	return cfg, nil
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

func (c Config) MailConfigured() bool {
	return c.Mail.SMTPHost != "" && c.Mail.From != ""
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// envNonNegativeIntOrDefault accepts an explicit 0, which some settings use as "disabled".
func envNonNegativeIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func envDaysOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * 24 * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
