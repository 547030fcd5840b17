package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskhive/trackd/internal/app/timer"
	"github.com/taskhive/trackd/internal/domain"
)

func init() {
	addClientFlags(statusCmd)
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timer, if any",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	active, err := c.GetActive(cmd.Context())
	if err != nil {
		return err
	}
	if active == nil {
		fmt.Println("No timer running.")
		return nil
	}

	p := timer.Projection{
		AccumulatedSeconds: active.AccumulatedSeconds,
		RunningSeconds:     domain.ClampDuration(active.Entry.StartedAt, time.Now()),
	}

	fmt.Printf("Tracking %s since %s\n", active.Entry.TaskID, active.Entry.StartedAt.Format("15:04:05"))
	fmt.Printf("  This entry: %s\n", formatClock(p.RunningSeconds))
	fmt.Printf("  Task total: %s\n", formatClock(p.Total()))
	if active.Entry.Note != "" {
		fmt.Printf("  Note: %s\n", active.Entry.Note)
	}
	return nil
}
