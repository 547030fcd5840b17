// Package cli implements the trackd command-line interface using Cobra.
// The serve subcommand runs the engine daemon; the rest are thin clients
// of its HTTP API, sharing the reconciliation agent with browser tabs.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trackd",
	Short: "trackd — Active time tracking for tasks",
	Long: `trackd is the time-tracking engine behind the task board.
One running timer per user across all tasks and devices; starting a new
timer stops the previous one atomically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
