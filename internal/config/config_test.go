package config

import (
	"log/slog"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address != "127.0.0.1:3000" {
		t.Fatalf("Address = %q, want default", cfg.Address)
	}
	if len(cfg.Replicas) != 1 || cfg.Replicas[0] != "http://localhost:8000/" {
		t.Fatalf("Replicas = %v, want default single entry", cfg.Replicas)
	}
	if len(cfg.DNSSuffix) != 1 || cfg.DNSSuffix[0] != "localhost" {
		t.Fatalf("DNSSuffix = %v, want default single entry", cfg.DNSSuffix)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v, want Info", cfg.LogLevel)
	}
}

func TestLoadRepeatableFlags(t *testing.T) {
	cfg, err := Load([]string{
		"-replica", "http://r1",
		"-replica", "http://r2",
		"-dns-alias", "a.example.com:aaaaa-aa",
		"-dns-suffix", "ic0.app",
		"-dns-suffix", "icp0.io",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Replicas) != 2 || cfg.Replicas[0] != "http://r1" || cfg.Replicas[1] != "http://r2" {
		t.Fatalf("Replicas = %v, want [http://r1 http://r2]", cfg.Replicas)
	}
	if len(cfg.DNSSuffix) != 2 {
		t.Fatalf("DNSSuffix = %v, want 2 entries", cfg.DNSSuffix)
	}
}

func TestLoadLogLevels(t *testing.T) {
	tests := []struct {
		flag string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			cfg, err := Load([]string{"-log-level", tt.flag})
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.LogLevel != tt.want {
				t.Fatalf("LogLevel = %v, want %v", cfg.LogLevel, tt.want)
			}
		})
	}
}

func TestValidateRejectsEmptyReplicas(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for a config with no replicas")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
