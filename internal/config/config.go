package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080"`
	BaseURL      string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./storydrip.db"`
	Debug        bool   `env:"DEBUG" envDefault:"false"`

	// Notification sweep loop. The send timeout must stay below the sweep
	// interval so a hung transport call cannot stack ticks.
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SweepBatchSize int           `env:"SWEEP_BATCH_SIZE" envDefault:"10"`
	SendTimeout    time.Duration `env:"SEND_TIMEOUT" envDefault:"30s"`
	ClaimTTL       time.Duration `env:"CLAIM_TTL" envDefault:"5m"`

	// Outbound email. With an empty API key the app falls back to a
	// log-only transport, which is fine for local development.
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	FromEmail      string `env:"FROM_EMAIL" envDefault:"story@storydrip.example"`
	FromName       string `env:"FROM_NAME" envDefault:"Storydrip"`

	// Optional ops alerts over Telegram. Disabled unless both are set.
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`

	// Signup throttle, per client IP.
	SignupRatePerMinute int `env:"SIGNUP_RATE_PER_MINUTE" envDefault:"10"`
	SignupRateBurst     int `env:"SIGNUP_RATE_BURST" envDefault:"5"`
}

// Load loads configuration from the environment, reading .env first if one
// exists.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.SweepBatchSize <= 0 {
		return nil, fmt.Errorf("sweep batch size must be positive, got %d", cfg.SweepBatchSize)
	}
	if cfg.SendTimeout >= cfg.SweepInterval {
		return nil, fmt.Errorf("send timeout %s must be shorter than sweep interval %s", cfg.SendTimeout, cfg.SweepInterval)
	}

	return cfg, nil
}

// AlertsEnabled reports whether Telegram ops alerts are configured.
func (c *Config) AlertsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

// TrackerURL builds the public URL for a tracker token.
func (c *Config) TrackerURL(token string) string {
	return fmt.Sprintf("%s/tracker/%s", c.BaseURL, token)
}
