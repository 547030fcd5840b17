package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskhive/trackd/internal/api"
	"github.com/taskhive/trackd/internal/app/timer"
	"github.com/taskhive/trackd/internal/health"
	_ "github.com/taskhive/trackd/internal/infra/metrics" // Register Prometheus metrics
	"github.com/taskhive/trackd/internal/infra/sqlite"
)

// Daemon is the core trackd runtime. It wires together all services.
type Daemon struct {
	Config Config
	DB     *sqlite.DB
	Timers *timer.Service
	Server *api.Server
	Health *health.Checker
	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	dataDir := cfg.Store.Dir
	if dataDir == "" {
		dataDir = trackdHome()
	}

	db, err := sqlite.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	setupLogging(cfg.Logging)

	timers := timer.NewService(db)
	srv := api.NewServer(timers)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)

	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	if cfg.Logging.Level == "debug" {
		srv.EnableRequestLog()
	}

	return &Daemon{
		Config: cfg,
		DB:     db,
		Timers: timers,
		Server: srv,
		Health: health.NewChecker(db, dataDir),
	}, nil
}

// setupLogging redirects the standard logger to the configured log file.
// An unwritable file is reported and logging stays on stderr.
func setupLogging(cfg LoggingConfig) {
	if cfg.File == "" {
		return
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		log.Printf("[daemon] cannot open log file %s: %v", cfg.File, err)
		return
	}
	log.SetOutput(f)
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Health checker (always runs)
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("trackd serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
