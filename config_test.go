package main

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "velvet-oak-274")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.LoginMaxAttempts != 5 || cfg.LoginWindow != 15*time.Minute {
		t.Errorf("login policy = %d/%v, want 5/15m", cfg.LoginMaxAttempts, cfg.LoginWindow)
	}
	if cfg.LeadMaxRequests != 10 || cfg.LeadWindow != time.Minute {
		t.Errorf("lead policy = %d/%v, want 10/1m", cfg.LeadMaxRequests, cfg.LeadWindow)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", cfg.SweepInterval)
	}
	if len(cfg.AllowedOrigins) == 0 {
		t.Error("AllowedOrigins should have defaults")
	}
}

func TestLoadConfigParsesOrigins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 ||
		cfg.AllowedOrigins[0] != "https://a.example" ||
		cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigFatalConditions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
	}{
		{"missing secret", func(t *testing.T) {
			t.Setenv("SESSION_SECRET", "")
			t.Setenv("ADMIN_USERNAME", "admin")
			t.Setenv("ADMIN_PASSWORD", "velvet-oak-274")
		}},
		{"short secret", func(t *testing.T) {
			t.Setenv("SESSION_SECRET", "too-short")
			t.Setenv("ADMIN_USERNAME", "admin")
			t.Setenv("ADMIN_PASSWORD", "velvet-oak-274")
		}},
		{"missing username", func(t *testing.T) {
			t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
			t.Setenv("ADMIN_USERNAME", "")
			t.Setenv("ADMIN_PASSWORD", "velvet-oak-274")
		}},
		{"missing password and hash", func(t *testing.T) {
			t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
			t.Setenv("ADMIN_USERNAME", "admin")
			t.Setenv("ADMIN_PASSWORD", "")
			t.Setenv("ADMIN_PASSWORD_HASH", "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			if _, err := LoadConfig(); err == nil {
				t.Fatal("LoadConfig should fail")
			}
		})
	}
}
