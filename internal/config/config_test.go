package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "PORT", "APP_URL", "AUTH_DISABLED", "WORKER_INTERVAL", "RECEIPT_REGION", "RECONCILE_RRULE"} {
		t.Setenv(key, "")
	}

	cfg, _ := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q; want 8080", cfg.Port)
	}
	if cfg.IsDevelopment() {
		t.Error("default env should not be development")
	}
	if cfg.AuthDisabled {
		t.Error("auth should be enabled by default")
	}
	if cfg.Worker.Interval != 5*time.Minute {
		t.Errorf("Worker.Interval = %v; want 5m", cfg.Worker.Interval)
	}
	if cfg.Receipts.Region != "auto" {
		t.Errorf("Receipts.Region = %q; want auto", cfg.Receipts.Region)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "https://practice.example.com/")
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("WORKER_INTERVAL", "30s")

	cfg, _ := Load()

	if !cfg.IsDevelopment() {
		t.Error("expected development env")
	}
	if cfg.AppURL != "https://practice.example.com" {
		t.Errorf("AppURL = %q; trailing slash should be trimmed", cfg.AppURL)
	}
	if !cfg.AuthDisabled {
		t.Error("expected AuthDisabled")
	}
	if cfg.Worker.Interval != 30*time.Second {
		t.Errorf("Worker.Interval = %v; want 30s", cfg.Worker.Interval)
	}
}

func TestGetDurationRejectsNonPositive(t *testing.T) {
	t.Setenv("WORKER_INTERVAL", "-1m")
	if got := getDuration("WORKER_INTERVAL", time.Minute); got != time.Minute {
		t.Errorf("getDuration = %v; want fallback", got)
	}
}
