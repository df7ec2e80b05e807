package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the API token stored in the OS keyring",
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the API token in the keyring",
	Long:  `Store the API token in the keyring. The token is read from --from-file or, when absent, from standard input.`,
	RunE:  runAuthSet,
}

var authDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the API token from the keyring",
	RunE:  runAuthDelete,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authDeleteCmd)

	authSetCmd.Flags().String("from-file", "", "Read the token from this file")
}

func runAuthSet(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var data []byte
	if path, _ := cmd.Flags().GetString("from-file"); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64*1024))
	}
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}

	src := keyringSource(cfg)
	if err := src.Store(string(data)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Token stored in keyring (%s/%s)\n", src.Service, src.User)
	return nil
}

func runAuthDelete(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	src := keyringSource(cfg)
	if err := src.Delete(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Token removed from keyring (%s/%s)\n", src.Service, src.User)
	return nil
}
