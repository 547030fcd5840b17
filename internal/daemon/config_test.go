package daemon

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 7430 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 7430)
	}
	if cfg.Reconcile.Interval != "30s" {
		t.Errorf("Reconcile.Interval = %q, want %q", cfg.Reconcile.Interval, "30s")
	}
	if !cfg.Telemetry.Prometheus {
		t.Error("Telemetry.Prometheus should default to true")
	}
}

func TestReconcileInterval(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"1m", time.Minute},
		{"", 30 * time.Second},        // Default
		{"garbage", 30 * time.Second}, // Fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Reconcile.Interval = tt.input
			if got := cfg.ReconcileInterval(); got != tt.want {
				t.Errorf("ReconcileInterval(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("TRACKD_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 7430 {
		t.Errorf("API.Port = %d, want default 7430", cfg.API.Port)
	}
}

func TestSaveThenLoadConfig(t *testing.T) {
	t.Setenv("TRACKD_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9999
	cfg.Reconcile.Interval = "45s"

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.API.Port != 9999 {
		t.Errorf("API.Port = %d, want 9999", got.API.Port)
	}
	if got.ReconcileInterval() != 45*time.Second {
		t.Errorf("ReconcileInterval() = %v, want 45s", got.ReconcileInterval())
	}
}
