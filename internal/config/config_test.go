package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "3000" || cfg.Timezone != "Asia/Karachi" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.BreakLength != 40*time.Minute {
		t.Fatalf("break length %v, want 40m", cfg.BreakLength)
	}
	if cfg.IdleWarning != 300*time.Second || cfg.AlertCooldown != 1800*time.Second {
		t.Fatalf("unexpected warning durations: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BREAK_MINUTES", "30")
	t.Setenv("PLATFORM_URL", "https://chat.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BreakLength != 30*time.Minute {
		t.Fatalf("break length %v, want 30m", cfg.BreakLength)
	}
	// Trailing slash is stripped so URL joins stay clean.
	if cfg.PlatformURL != "https://chat.example.com" {
		t.Fatalf("platform url %q", cfg.PlatformURL)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("BREAK_MINUTES", "forty")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric BREAK_MINUTES")
	}
}
