package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir()) // no config file present
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.WarningDays != 30 || cfg.ReviewDays != 90 {
		t.Errorf("thresholds = %d/%d", cfg.WarningDays, cfg.ReviewDays)
	}
	if cfg.CleanupConcurrency != 4 || cfg.RemovalTimeoutSeconds != 120 {
		t.Errorf("cleanup settings = %d/%d", cfg.CleanupConcurrency, cfg.RemovalTimeoutSeconds)
	}
	if !strings.HasSuffix(cfg.DatabasePath, filepath.Join("macsweep", "macsweep.db")) {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
warning_days: 14
review_days: 60
log_level: debug
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.WarningDays != 14 || cfg.ReviewDays != 60 {
		t.Errorf("thresholds = %d/%d", cfg.WarningDays, cfg.ReviewDays)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	// Untouched keys keep defaults.
	if cfg.CleanupConcurrency != 4 {
		t.Errorf("concurrency = %d", cfg.CleanupConcurrency)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MACSWEEP_REVIEW_DAYS", "180")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ReviewDays != 180 {
		t.Errorf("review days = %d, want 180 from env", cfg.ReviewDays)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	dir := t.TempDir()
	yaml := "warning_days: 90\nreview_days: 30\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("inverted thresholds should fail validation")
	}

	cfg := DefaultConfig()
	cfg.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("bad log level should fail validation")
	}
}
