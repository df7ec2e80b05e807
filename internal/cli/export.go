package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ogulcanaydogan/miro-guardian/internal/config"
	"github.com/ogulcanaydogan/miro-guardian/pkg/export"
	"github.com/spf13/cobra"
)

// addExportFlags registers the flags shared by export commands.
func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output path (default from export config)")
	cmd.Flags().StringP("format", "f", "", "Export format (csv, json, yaml, sqlite)")
	cmd.Flags().String("token-file", "", "Read the API token from this file")
}

// exportTarget resolves the sink format and path for a command. defaultFile
// is the configured file name for the csv layout; its extension follows
// the chosen format.
func exportTarget(cmd *cobra.Command, cfg *config.Config, defaultFile string) (export.Format, string, error) {
	format := export.Format(cfg.Export.Format)
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		format = export.Format(f)
	}
	if !format.Valid() {
		return "", "", fmt.Errorf("unknown export format %q", format)
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return format, out, nil
	}
	if format == export.FormatSQLite {
		return format, cfg.Export.SQLitePath, nil
	}
	ext := filepath.Ext(defaultFile)
	return format, strings.TrimSuffix(defaultFile, ext) + "." + string(format), nil
}

// writeTable opens the sink, writes one table and closes it.
func writeTable(ctx context.Context, format export.Format, path string, t export.Table) error {
	sink, err := export.Open(format, path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := sink.Write(ctx, t); err != nil {
		sink.Close()
		return fmt.Errorf("export: %w", err)
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
