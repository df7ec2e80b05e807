package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ogulcanaydogan/miro-guardian/pkg/export"
	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	"github.com/spf13/viper"
)

// Config holds all Miro Guardian configuration.
type Config struct {
	Miro        MiroConfig        `mapstructure:"miro"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	License     LicenseConfig     `mapstructure:"license"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Export      ExportConfig      `mapstructure:"export"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// MiroConfig defines the Miro REST API connection.
type MiroConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	OrgID     string        `mapstructure:"org_id"`
	PageLimit int           `mapstructure:"page_limit"`
	MaxPages  int           `mapstructure:"max_pages"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst"`
}

// CredentialsConfig selects where the API token is read from.
type CredentialsConfig struct {
	Source         string `mapstructure:"source"`
	File           string `mapstructure:"file"`
	EnvVar         string `mapstructure:"env_var"`
	DotenvFile     string `mapstructure:"dotenv_file"`
	KeyringService string `mapstructure:"keyring_service"`
	KeyringUser    string `mapstructure:"keyring_user"`
}

// Credential sources.
const (
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceKeyring = "keyring"
)

// LicenseConfig defines the purchased license allocation.
type LicenseConfig struct {
	Total int `mapstructure:"total"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// ExportConfig defines export destinations.
type ExportConfig struct {
	Format      string `mapstructure:"format"`
	BoardsFile  string `mapstructure:"boards_file"`
	MembersFile string `mapstructure:"members_file"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".miroguard"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	v.SetDefault("miro.base_url", "https://api.miro.com")
	v.SetDefault("miro.org_id", "")
	v.SetDefault("miro.page_limit", 50)
	v.SetDefault("miro.max_pages", 10000)
	v.SetDefault("miro.timeout", "30s")
	v.SetDefault("miro.rate_limit", 0)
	v.SetDefault("miro.rate_burst", 1)
	v.SetDefault("credentials.source", SourceEnv)
	v.SetDefault("credentials.file", "")
	v.SetDefault("credentials.env_var", "MIRO_API_TOKEN")
	v.SetDefault("credentials.dotenv_file", "")
	v.SetDefault("credentials.keyring_service", "miroguard")
	v.SetDefault("credentials.keyring_user", "default")
	v.SetDefault("license.total", 600)
	v.SetDefault("alerts.slack.enabled", true)
	v.SetDefault("alerts.slack.webhook_url", "")
	v.SetDefault("alerts.slack.channel", "")
	v.SetDefault("alerts.webhook.enabled", false)
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("alerts.webhook.secret", "")
	v.SetDefault("export.format", string(export.FormatCSV))
	v.SetDefault("export.boards_file", "miro_boards_export.csv")
	v.SetDefault("export.members_file", "miro_users_export.csv")
	v.SetDefault("export.sqlite_path", "miroguard.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("MIROGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variable names used by the standalone scripts.
	if err := v.BindEnv("miro.org_id", "MIROGUARD_MIRO_ORG_ID", "MIRO_ORG_ID"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("alerts.slack.webhook_url", "MIROGUARD_ALERTS_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.License.Total < 0 {
		return &model.PreconditionError{Field: "license.total", Reason: "must not be negative"}
	}
	if c.Miro.PageLimit <= 0 {
		return &model.PreconditionError{Field: "miro.page_limit", Reason: "must be positive"}
	}
	if c.Miro.MaxPages <= 0 {
		return &model.PreconditionError{Field: "miro.max_pages", Reason: "must be positive"}
	}
	switch c.Credentials.Source {
	case SourceFile, SourceEnv, SourceKeyring:
	default:
		return &model.PreconditionError{Field: "credentials.source", Reason: fmt.Sprintf("unknown source %q", c.Credentials.Source)}
	}
	if !export.Format(c.Export.Format).Valid() {
		return &model.PreconditionError{Field: "export.format", Reason: fmt.Sprintf("unknown format %q", c.Export.Format)}
	}
	return nil
}
