// Package cli defines the eval-hub command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eval-hub/eval-hub/internal/app"
	"github.com/eval-hub/eval-hub/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "eval-hub",
	Short: "Model evaluation coordination service",
	Long:  `eval-hub coordinates evaluation runs of machine-learning models against benchmark suites executed by pluggable backends.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the eval-hub API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.App(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("eval-hub %s (commit: %s, built: %s)\n",
			version.Version, version.GitCommit, version.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
