package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	startCmd.Flags().StringVar(&startNote, "note", "", "Optional note for this entry")
	addClientFlags(startCmd)
	rootCmd.AddCommand(startCmd)
}

var startNote string

var startCmd = &cobra.Command{
	Use:   "start TASK",
	Short: "Start tracking time on a task",
	Long:  `Start a timer on the given task, stopping any running timer first.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	active, err := c.Start(cmd.Context(), args[0], startNote)
	if err != nil {
		return err
	}

	fmt.Printf("Tracking %s (entry %s)\n", active.Entry.TaskID, active.Entry.ID)
	if active.AccumulatedSeconds > 0 {
		fmt.Printf("Previously tracked: %s\n", formatClock(active.AccumulatedSeconds))
	}
	return nil
}
