package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	addClientFlags(historyCmd)
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history TASK",
	Short: "List time entries for a task, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	taskID := args[0]
	entries, err := c.History(cmd.Context(), taskID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No entries for task %s.\n", taskID)
		return nil
	}

	total, err := c.TotalForTask(cmd.Context(), taskID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDURATION\tUSER\tNOTE")
	for _, e := range entries {
		duration := "running"
		if !e.Running() {
			duration = formatClock(e.DurationSeconds)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.StartedAt.Format("2006-01-02 15:04"),
			duration,
			e.UserID,
			e.Note,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nTotal tracked: %s\n", formatClock(total))
	return nil
}
