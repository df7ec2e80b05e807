package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ogulcanaydogan/miro-guardian/internal/config"
	"github.com/ogulcanaydogan/miro-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/miro-guardian/pkg/credentials"
	"github.com/ogulcanaydogan/miro-guardian/pkg/miro"
	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	"github.com/ogulcanaydogan/miro-guardian/pkg/pagination"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "miroguard",
	Short: "Miro Guardian - Miro board, member and license reporting",
	Long: `Miro Guardian pulls boards and organization members from the Miro REST API,
exports them as CSV, JSON, YAML or SQLite, and checks full-license usage
against the purchased allocation with Slack and webhook alerts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.miroguard/config.yaml)")
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initCredentials selects the token source. A token file given on the
// command line takes precedence over the configured source.
func initCredentials(cfg *config.Config, tokenFile string) credentials.Source {
	if tokenFile != "" {
		return credentials.FileSource{Path: tokenFile}
	}
	switch cfg.Credentials.Source {
	case config.SourceFile:
		return credentials.FileSource{Path: cfg.Credentials.File}
	case config.SourceKeyring:
		return keyringSource(cfg)
	default:
		return credentials.EnvSource{Var: cfg.Credentials.EnvVar, DotenvFile: cfg.Credentials.DotenvFile}
	}
}

func keyringSource(cfg *config.Config) credentials.KeyringSource {
	return credentials.KeyringSource{Service: cfg.Credentials.KeyringService, User: cfg.Credentials.KeyringUser}
}

// initClient reads the token once and creates a fully wired API client.
func initClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, tokenFile string) (*miro.Client, error) {
	src := initCredentials(cfg, tokenFile)
	token, err := src.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	logger.Debug("credential loaded", "source", src.Name())

	opts := []pagination.SourceOption{
		pagination.WithTimeout(cfg.Miro.Timeout),
		pagination.WithUserAgent("miroguard/" + Version),
	}
	if cfg.Miro.RateLimit > 0 {
		opts = append(opts, pagination.WithRateLimit(cfg.Miro.RateLimit, cfg.Miro.RateBurst))
	}

	return miro.NewClient(
		cfg.Miro.BaseURL,
		token,
		cfg.Miro.PageLimit,
		pagination.NewHTTPSource(opts...),
		pagination.NewFetcher(cfg.Miro.MaxPages, logger),
		logger,
	)
}

// initNotifiers creates alert notifiers from config. An enabled sink
// without a URL, or no enabled sink at all, is a configuration error.
func initNotifiers(cfg *config.Config) ([]alerts.Notifier, error) {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled {
		if cfg.Alerts.Slack.WebhookURL == "" {
			return nil, &model.PreconditionError{Field: "alerts.slack.webhook_url", Reason: "is required when slack alerts are enabled"}
		}
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled {
		if cfg.Alerts.Webhook.URL == "" {
			return nil, &model.PreconditionError{Field: "alerts.webhook.url", Reason: "is required when webhook alerts are enabled"}
		}
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	if len(notifiers) == 0 {
		return nil, &model.PreconditionError{Field: "alerts", Reason: "no alert sink configured"}
	}
	return notifiers, nil
}
