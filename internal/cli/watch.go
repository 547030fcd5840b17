package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskhive/trackd/internal/agent"
	"github.com/taskhive/trackd/internal/daemon"
)

func init() {
	watchCmd.Flags().DurationVar(&watchReconcile, "reconcile", 0,
		"How often to re-poll the server for cross-device changes (default from config)")
	addClientFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

var watchReconcile time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live-ticking display of the running timer",
	Long: `Show the running timer, updating every second. The display ticks
locally; the server is re-polled on the reconcile interval, so a timer
switched from another device shows up here without restarting.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	interval := watchReconcile
	if interval <= 0 {
		// reconcile.interval from config.toml, 30s when unset.
		cfg, err := daemon.LoadConfig()
		if err != nil {
			return err
		}
		interval = cfg.ReconcileInterval()
	}

	a := agent.New(c)
	a.SetInterval(interval)

	ctx := cmd.Context()
	go a.Run(ctx)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case <-ticker.C:
			printSnapshot(a.Snapshot())
		}
	}
}

func printSnapshot(s agent.Snapshot) {
	// \r keeps the display on one line.
	if !s.Running {
		fmt.Printf("\r\033[Kidle")
		return
	}
	suffix := ""
	if s.Degraded {
		suffix = "  (sync error, retrying)"
	}
	fmt.Printf("\r\033[K%s  %s  (task total %s)%s",
		s.TaskID,
		formatClock(s.Display.RunningSeconds),
		formatClock(s.Display.Total()),
		suffix,
	)
}
