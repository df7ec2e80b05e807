package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/miro-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/miro-guardian/pkg/license"
	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	"github.com/spf13/cobra"
)

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Monitor full-license usage",
}

var licenseCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Count active full licenses and alert on overage",
	Long: `Fetch every member of the organization, count active members holding a
full license and compare the count with the purchased total. The rendered
report is delivered to every configured alert sink.`,
	RunE: runLicenseCheck,
}

func init() {
	rootCmd.AddCommand(licenseCmd)
	licenseCmd.AddCommand(licenseCheckCmd)

	licenseCheckCmd.Flags().StringArray("org", nil, "Organization ID, repeatable (default from miro.org_id)")
	licenseCheckCmd.Flags().Int("total", 0, "Purchased full licenses (default from license.total)")
	licenseCheckCmd.Flags().Bool("dry-run", false, "Print the report instead of delivering it")
	licenseCheckCmd.Flags().String("token-file", "", "Read the API token from this file")
}

func runLicenseCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	orgIDs, _ := cmd.Flags().GetStringArray("org")
	if len(orgIDs) == 0 {
		orgIDs = []string{cfg.Miro.OrgID}
	}
	total := cfg.License.Total
	if cmd.Flags().Changed("total") {
		total, _ = cmd.Flags().GetInt("total")
	}
	if total < 0 {
		return &model.PreconditionError{Field: "license total", Reason: "must not be negative"}
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var notifiers []alerts.Notifier
	if !dryRun {
		notifiers, err = initNotifiers(cfg)
		if err != nil {
			return err
		}
	}

	tokenFile, _ := cmd.Flags().GetString("token-file")
	client, err := initClient(cmd.Context(), cfg, logger, tokenFile)
	if err != nil {
		return err
	}

	monitor := license.NewMonitor(client, total, notifiers, logger)
	reports, runErr := monitor.RunAll(cmd.Context(), orgIDs)

	out := cmd.OutOrStdout()
	printed := 0
	for _, report := range reports {
		if report == nil {
			continue
		}
		if printed > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, alerts.Render(report.OrgID, report.Message))
		printed++
	}

	return runErr
}
