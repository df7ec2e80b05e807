package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/miro-guardian/pkg/export"
	"github.com/spf13/cobra"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "Work with Miro boards",
}

var boardsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every board visible to the token",
	RunE:  runBoardsExport,
}

func init() {
	rootCmd.AddCommand(boardsCmd)
	boardsCmd.AddCommand(boardsExportCmd)
	addExportFlags(boardsExportCmd)
}

func runBoardsExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	format, path, err := exportTarget(cmd, cfg, cfg.Export.BoardsFile)
	if err != nil {
		return err
	}

	tokenFile, _ := cmd.Flags().GetString("token-file")
	client, err := initClient(cmd.Context(), cfg, logger, tokenFile)
	if err != nil {
		return err
	}

	boards, err := client.ListBoards(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(boards) == 0 {
		fmt.Fprintln(out, "No boards found.")
		return nil
	}

	if err := writeTable(cmd.Context(), format, path, export.BoardsTable(boards)); err != nil {
		return err
	}

	logger.Info("boards exported", "count", len(boards), "format", format, "path", path)
	fmt.Fprintf(out, "Exported %d boards to %s\n", len(boards), path)
	return nil
}
