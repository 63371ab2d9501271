package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thenielthevis/capstone-project-sub006/pkg/observability"
)

var logLevel string

// rootCmd is the base command for riskctl.
var rootCmd = &cobra.Command{
	Use:   "riskctl",
	Short: "Operate the health risk prediction engine",
	Long: `riskctl manages the health risk prediction engine outside the server:
it applies schema migrations, runs a single prediction for a user, and mints
development tokens and certificates.

Configuration comes from the same environment variables as riskd.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		observability.InitLogger(observability.LogConfig{
			Level:  logLevel,
			Format: "text",
			Output: cmd.ErrOrStderr(),
		})
	},
}

// versionCmd prints the riskctl version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "riskctl %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(devCertsCmd)
	rootCmd.AddCommand(versionCmd)
}
