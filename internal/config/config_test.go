package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/miro-guardian/internal/config"
	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MIRO_ORG_ID", "")
	t.Setenv("SLACK_WEBHOOK_URL", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.miro.com", cfg.Miro.BaseURL)
	assert.Equal(t, 50, cfg.Miro.PageLimit)
	assert.Equal(t, 10000, cfg.Miro.MaxPages)
	assert.Equal(t, 30*time.Second, cfg.Miro.Timeout)
	assert.Equal(t, config.SourceEnv, cfg.Credentials.Source)
	assert.Equal(t, "MIRO_API_TOKEN", cfg.Credentials.EnvVar)
	assert.Equal(t, "miroguard", cfg.Credentials.KeyringService)
	assert.Equal(t, 600, cfg.License.Total)
	assert.True(t, cfg.Alerts.Slack.Enabled)
	assert.Empty(t, cfg.Alerts.Slack.Channel)
	assert.False(t, cfg.Alerts.Webhook.Enabled)
	assert.Equal(t, "csv", cfg.Export.Format)
	assert.Equal(t, "miro_boards_export.csv", cfg.Export.BoardsFile)
	assert.Equal(t, "miro_users_export.csv", cfg.Export.MembersFile)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
miro:
  org_id: "3458764517517819000"
  timeout: 5s
  rate_limit: 2.5
credentials:
  source: keyring
license:
  total: 250
alerts:
  slack:
    channel: "#licenses"
export:
  format: sqlite
logging:
  level: debug
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "3458764517517819000", cfg.Miro.OrgID)
	assert.Equal(t, 5*time.Second, cfg.Miro.Timeout)
	assert.InDelta(t, 2.5, cfg.Miro.RateLimit, 1e-9)
	assert.Equal(t, config.SourceKeyring, cfg.Credentials.Source)
	assert.Equal(t, 250, cfg.License.Total)
	assert.Equal(t, "#licenses", cfg.Alerts.Slack.Channel)
	assert.Equal(t, "sqlite", cfg.Export.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MIROGUARD_LOGGING_LEVEL", "error")
	t.Setenv("MIROGUARD_LICENSE_TOTAL", "42")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 42, cfg.License.Total)
}

func TestLoad_ScriptEnvFallbacks(t *testing.T) {
	t.Setenv("MIRO_ORG_ID", "org-from-env")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "org-from-env", cfg.Miro.OrgID)
	assert.Equal(t, "https://hooks.slack.com/services/T/B/X", cfg.Alerts.Slack.WebhookURL)
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	t.Setenv("MIRO_ORG_ID", "legacy")
	t.Setenv("MIROGUARD_MIRO_ORG_ID", "prefixed")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Miro.OrgID)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	err := os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Miro:        config.MiroConfig{PageLimit: 50, MaxPages: 100},
			Credentials: config.CredentialsConfig{Source: config.SourceEnv},
			License:     config.LicenseConfig{Total: 600},
			Export:      config.ExportConfig{Format: "csv"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"negative total", func(c *config.Config) { c.License.Total = -1 }, "license.total"},
		{"zero page limit", func(c *config.Config) { c.Miro.PageLimit = 0 }, "miro.page_limit"},
		{"zero max pages", func(c *config.Config) { c.Miro.MaxPages = 0 }, "miro.max_pages"},
		{"unknown source", func(c *config.Config) { c.Credentials.Source = "vault" }, "credentials.source"},
		{"unknown format", func(c *config.Config) { c.Export.Format = "xlsx" }, "export.format"},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			var pe *model.PreconditionError
			require.ErrorAs(t, cfg.Validate(), &pe)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}
