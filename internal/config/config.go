package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/fau-events/internal/model"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	minSecretLength = 32
	minBcryptCost   = 10
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Admin    AdminConfig
	Mail     MailConfig
	Webhook  WebhookConfig
	Reminder ReminderConfig

	// GeneratedSecret is true when no JWT_SECRET was supplied and a
	// per-process secret was generated instead.
	GeneratedSecret bool
}

type ServerConfig struct {
	Host           string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port           int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

type DatabaseConfig struct {
	URL          string `env:"DATABASE_URL"`
	Host         string `env:"DB_HOST" envDefault:"localhost"`
	Port         int    `env:"DB_PORT" envDefault:"5432"`
	User         string `env:"DB_USER" envDefault:"postgres"`
	Password     string `env:"DB_PASSWORD"`
	Database     string `env:"DB_NAME" envDefault:"fau"`
	SSLMode      string `env:"DB_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
}

type AuthConfig struct {
	Secret       string        `env:"JWT_SECRET"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"12"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`
}

type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	Name     string `env:"ADMIN_NAME" envDefault:"Admin"`
}

type MailConfig struct {
	Host        string        `env:"SMTP_HOST"`
	Port        int           `env:"SMTP_PORT" envDefault:"587"`
	Username    string        `env:"SMTP_USERNAME"`
	Password    string        `env:"SMTP_PASSWORD"`
	From        string        `env:"MAIL_FROM" envDefault:"FAU <noreply@example.org>"`
	SendTimeout time.Duration `env:"MAIL_SEND_TIMEOUT" envDefault:"20s"`
}

// Enabled reports whether outbound mail is configured. Without it the
// dispatcher falls back to a no-op transport.
func (c MailConfig) Enabled() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

type WebhookConfig struct {
	URL         string `env:"BOARD_WEBHOOK_URL"`
	RateLimitMs int    `env:"WEBHOOK_RATE_LIMIT_MS" envDefault:"1000"`
}

type ReminderConfig struct {
	Schedule string `env:"REMINDER_SCHEDULE" envDefault:"@hourly"`
	Timezone string `env:"TIMEZONE" envDefault:"Europe/Oslo"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c ReminderConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// Validate refuses insecure production settings and fills development
// fallbacks.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.Auth.Secret == "" {
			return fmt.Errorf("%w: JWT_SECRET must be set in production", model.ErrConfiguration)
		}
		if len(c.Auth.Secret) < minSecretLength {
			return fmt.Errorf("%w: JWT_SECRET must be at least %d bytes", model.ErrConfiguration, minSecretLength)
		}
		if c.Database.URL == "" && c.Database.Password == "" {
			return fmt.Errorf("%w: DATABASE_URL or DB_PASSWORD must be set in production", model.ErrConfiguration)
		}
	} else if c.Auth.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("%w: generate session secret: %v", model.ErrConfiguration, err)
		}
		c.Auth.Secret = secret
		c.GeneratedSecret = true
	}

	if c.Auth.BcryptCost < minBcryptCost {
		c.Auth.BcryptCost = minBcryptCost
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be positive", model.ErrConfiguration)
	}
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			return fmt.Errorf("%w: DATABASE_URL: %v", model.ErrConfiguration, err)
		}
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

func randomSecret() (string, error) {
	b := make([]byte, minSecretLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
