package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/tutordesk/tutordesk-agent/internal/retry"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080"`

	// Slack (optional — the bot starts without Slack and logs deliveries
	// through the fake channel, useful for local runs)
	SlackBotToken   string `envconfig:"BOT_SLACK_BOT_TOKEN"`
	OperatorChannel string `envconfig:"BOT_OPERATOR_CHANNEL" default:"#tutor-support"`

	// Sessions
	SessionIdleTimeout      time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
	KeepPartialDataOnCancel bool          `envconfig:"KEEP_PARTIAL_DATA_ON_CANCEL" default:"true"`

	// Notification dispatch
	DispatchWorkers   int           `envconfig:"DISPATCH_WORKERS" default:"4"`
	DispatchQueueSize int           `envconfig:"DISPATCH_QUEUE_SIZE" default:"1000"`
	NotifyMaxRetries  int           `envconfig:"NOTIFY_MAX_RETRIES" default:"3"`
	NotifyBaseDelay   time.Duration `envconfig:"NOTIFY_BASE_DELAY" default:"30s"`
	NotifyBackoff     string        `envconfig:"NOTIFY_BACKOFF" default:"linear"` // "linear" or "exponential"
	NotifyMaxDelay    time.Duration `envconfig:"NOTIFY_MAX_DELAY" default:"5m"`   // exponential only

	// Storage
	DBPath string `envconfig:"DB_PATH" default:"tutordesk.db"`

	// Overrides loaded from YAML files; empty means built-in defaults.
	IntentRulesPath string `envconfig:"INTENT_RULES_PATH"`
	TemplatesPath   string `envconfig:"TEMPLATES_PATH"`
}

// SlackEnabled returns true if a Slack bot token is configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != ""
}

// RetryPolicy builds the notification retry policy from config.
func (c *Config) RetryPolicy() (retry.Policy, error) {
	switch strings.ToLower(c.NotifyBackoff) {
	case "linear", "":
		return retry.Linear(c.NotifyMaxRetries, c.NotifyBaseDelay), nil
	case "exponential":
		return retry.Exponential(c.NotifyMaxRetries, c.NotifyBaseDelay, c.NotifyMaxDelay), nil
	default:
		return retry.Policy{}, fmt.Errorf("unknown backoff kind %q", c.NotifyBackoff)
	}
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port %d", c.HTTPPort)
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session idle timeout must be positive")
	}
	if c.NotifyMaxRetries < 0 {
		return fmt.Errorf("notify max retries must not be negative")
	}
	if _, err := c.RetryPolicy(); err != nil {
		return err
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
