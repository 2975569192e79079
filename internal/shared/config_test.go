package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Backend.BaseURL != "http://localhost:8000/api/v1" {
			t.Errorf("expected backend base URL http://localhost:8000/api/v1, got %s", config.Backend.BaseURL)
		}
		if config.Backend.RealtimeURL != "ws://localhost:8000/api/v1/ws" {
			t.Errorf("expected realtime URL ws://localhost:8000/api/v1/ws, got %s", config.Backend.RealtimeURL)
		}
		if config.Realtime.HandshakeTimeout() != 10*time.Second {
			t.Errorf("expected 10s handshake timeout, got %v", config.Realtime.HandshakeTimeout())
		}
		if config.Realtime.BaseDelay() != 3*time.Second {
			t.Errorf("expected 3s base delay, got %v", config.Realtime.BaseDelay())
		}
		if config.Realtime.MaxDelay() != 30*time.Second {
			t.Errorf("expected 30s max delay, got %v", config.Realtime.MaxDelay())
		}
		if config.Realtime.ProbeInterval() != 15*time.Second {
			t.Errorf("expected 15s probe interval, got %v", config.Realtime.ProbeInterval())
		}
		if config.Realtime.Multiplier != 1.5 {
			t.Errorf("expected multiplier 1.5, got %v", config.Realtime.Multiplier)
		}
		if config.Realtime.MaxAttempts != 5 {
			t.Errorf("expected 5 max attempts, got %d", config.Realtime.MaxAttempts)
		}
		if config.Database.Path != "./genie.db" {
			t.Errorf("expected database path ./genie.db, got %s", config.Database.Path)
		}
		if config.Server.Addr() != "localhost:3000" {
			t.Errorf("expected server addr localhost:3000, got %s", config.Server.Addr())
		}
		if err := config.Validate(); err != nil {
			t.Errorf("expected default config to be valid, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[backend]
base_url = "https://genie.example.com/api/v1"
realtime_url = "wss://genie.example.com/api/v1/ws"

[realtime]
max_attempts = 8

[database]
path = "/custom/path.db"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Backend.BaseURL != "https://genie.example.com/api/v1" {
			t.Errorf("expected overridden base URL, got %s", config.Backend.BaseURL)
		}
		if config.Realtime.MaxAttempts != 8 {
			t.Errorf("expected max attempts 8, got %d", config.Realtime.MaxAttempts)
		}
		if config.Realtime.BaseDelayMS != 3000 {
			t.Errorf("expected default base delay to survive partial file, got %d", config.Realtime.BaseDelayMS)
		}
		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("GENIE_BACKEND_URL", "https://override.example.com/api/v1")
		t.Setenv("GENIE_LOG_LEVEL", "debug")

		config := DefaultConfig()
		if err := config.ApplyEnv(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if config.Backend.BaseURL != "https://override.example.com/api/v1" {
			t.Errorf("expected env base URL, got %s", config.Backend.BaseURL)
		}
		if config.Log.Level != "debug" {
			t.Errorf("expected env log level debug, got %s", config.Log.Level)
		}
		if config.Backend.RealtimeURL != "ws://localhost:8000/api/v1/ws" {
			t.Errorf("expected unset env var to keep default, got %s", config.Backend.RealtimeURL)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(c *Config)
		}{
			{name: "empty base url", mutate: func(c *Config) { c.Backend.BaseURL = "" }},
			{name: "empty realtime url", mutate: func(c *Config) { c.Backend.RealtimeURL = "" }},
			{name: "zero handshake timeout", mutate: func(c *Config) { c.Realtime.HandshakeTimeoutMS = 0 }},
			{name: "cap below base", mutate: func(c *Config) { c.Realtime.MaxDelayMS = 1000 }},
			{name: "shrinking multiplier", mutate: func(c *Config) { c.Realtime.Multiplier = 0.5 }},
			{name: "no attempts", mutate: func(c *Config) { c.Realtime.MaxAttempts = 0 }},
			{name: "negative probe interval", mutate: func(c *Config) { c.Realtime.ProbeIntervalMS = -1 }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
