package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/miro-guardian/pkg/export"
	"github.com/spf13/cobra"
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Work with organization members",
}

var membersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every member of an organization",
	RunE:  runMembersExport,
}

func init() {
	rootCmd.AddCommand(membersCmd)
	membersCmd.AddCommand(membersExportCmd)
	addExportFlags(membersExportCmd)
	membersExportCmd.Flags().String("org", "", "Organization ID (default from miro.org_id)")
}

func runMembersExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	orgID, _ := cmd.Flags().GetString("org")
	if orgID == "" {
		orgID = cfg.Miro.OrgID
	}

	format, path, err := exportTarget(cmd, cfg, cfg.Export.MembersFile)
	if err != nil {
		return err
	}

	tokenFile, _ := cmd.Flags().GetString("token-file")
	client, err := initClient(cmd.Context(), cfg, logger, tokenFile)
	if err != nil {
		return err
	}

	members, err := client.ListMembers(cmd.Context(), orgID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(members) == 0 {
		fmt.Fprintln(out, "No members data fetched.")
		return nil
	}

	if err := writeTable(cmd.Context(), format, path, export.MembersTable(members)); err != nil {
		return err
	}

	logger.Info("members exported", "org", orgID, "count", len(members), "format", format, "path", path)
	fmt.Fprintf(out, "Exported %d members to %s\n", len(members), path)
	return nil
}
