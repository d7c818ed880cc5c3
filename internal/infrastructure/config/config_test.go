package config_test

import (
	"testing"

	"github.com/tpe/txengine/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TPE_LOG_LEVEL", "")
	t.Setenv("TPE_METRICS_FILE", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Fatalf("expected default log level warn, got %q", cfg.LogLevel)
	}

	if cfg.LogFormat != "console" {
		t.Fatalf("expected default log format console, got %q", cfg.LogFormat)
	}

	if cfg.ReportFormat != "csv" {
		t.Fatalf("expected default report format csv, got %q", cfg.ReportFormat)
	}

	if cfg.MetricsFile != "" {
		t.Fatalf("expected metrics file default to be empty, got %q", cfg.MetricsFile)
	}

	if cfg.Strict || cfg.Verify {
		t.Fatalf("expected strict and verify to be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TPE_LOG_LEVEL", "debug")
	t.Setenv("TPE_LOG_FORMAT", "json")
	t.Setenv("TPE_REPORT_FORMAT", "json")
	t.Setenv("TPE_METRICS_FILE", "/tmp/tpe.prom")
	t.Setenv("TPE_STRICT", "true")
	t.Setenv("TPE_VERIFY", "true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level override, got %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "json" {
		t.Fatalf("expected log format override, got %s", cfg.LogFormat)
	}

	if cfg.ReportFormat != "json" {
		t.Fatalf("expected report format override, got %s", cfg.ReportFormat)
	}

	if cfg.MetricsFile != "/tmp/tpe.prom" {
		t.Fatalf("expected metrics file override, got %s", cfg.MetricsFile)
	}

	if !cfg.Strict || !cfg.Verify {
		t.Fatalf("expected strict and verify overrides to be applied")
	}
}

func TestLoadInvalidBool(t *testing.T) {
	t.Setenv("TPE_STRICT", "maybe")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for invalid boolean")
	}
}
