package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scarletdash",
	Short: "scarletdash - operator dashboard for the scarlet home-automation backend",
	Long: `scarletdash is the operator dashboard for the scarlet home-automation
backend. It manages irrigation programs and their sessions, toggles blinds and
irrigation automation, commands the blinds, starts manual irrigation runs and
shows the weather score, from a browser, a terminal UI, or the command line.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the web dashboard when no subcommand is provided
		return runServe(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (defaults and SCARLETDASH_* environment when empty)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
