package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	addClientFlags(stopCmd)
	rootCmd.AddCommand(stopCmd)
}

var stopCmd = &cobra.Command{
	Use:   "stop [ENTRY]",
	Short: "Stop the running timer",
	Long: `Stop the running timer. With an entry id, stop that specific
entry instead of whatever is active now.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		entry, err := c.StopByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Stopped entry %s after %s\n", entry.ID, formatClock(entry.DurationSeconds))
		return nil
	}

	stopped, err := c.Stop(cmd.Context())
	if err != nil {
		return err
	}
	if stopped == 0 {
		fmt.Println("No timer was running.")
		return nil
	}
	fmt.Println("Timer stopped.")
	return nil
}
