package cli

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/taskhive/trackd/internal/api"
	"github.com/taskhive/trackd/internal/daemon"
)

var (
	flagServer string
	flagUser   string
)

// addClientFlags registers the flags shared by every client subcommand.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagServer, "server", "", "trackd server URL (default from config)")
	cmd.Flags().StringVar(&flagUser, "user", "", "user id to act as (default: $TRACKD_USER or OS user)")
}

// newClient builds an API client from flags, env, and config defaults.
func newClient() (*api.Client, error) {
	server := flagServer
	if server == "" {
		cfg, err := daemon.LoadConfig()
		if err != nil {
			return nil, err
		}
		server = fmt.Sprintf("http://%s:%d", cfg.API.Host, cfg.API.Port)
	}

	userID := flagUser
	if userID == "" {
		userID = os.Getenv("TRACKD_USER")
	}
	if userID == "" {
		if u, err := user.Current(); err == nil {
			userID = u.Username
		}
	}
	if userID == "" {
		return nil, fmt.Errorf("no user id: set --user or TRACKD_USER")
	}

	return api.NewClient(server, userID), nil
}

// formatClock renders seconds as H:MM:SS.
func formatClock(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
