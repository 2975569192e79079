package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

//go:embed config.example.toml
var exampleConf []byte

// envPrefix scopes deploy-time overrides, e.g. GENIE_BACKEND_URL.
const envPrefix = "genie"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Realtime RealtimeConfig `toml:"realtime"`
	Auth     AuthConfig     `toml:"auth"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// BackendConfig contains the REST and push channel addresses.
type BackendConfig struct {
	BaseURL           string  `toml:"base_url"`
	RealtimeURL       string  `toml:"realtime_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Timeout returns the per-request HTTP timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// RealtimeConfig contains handshake and reconnection settings for the push channel.
type RealtimeConfig struct {
	HandshakeTimeoutMS int     `toml:"handshake_timeout_ms"`
	BaseDelayMS        int     `toml:"base_delay_ms"`
	MaxDelayMS         int     `toml:"max_delay_ms"`
	Multiplier         float64 `toml:"multiplier"`
	MaxAttempts        int     `toml:"max_attempts"`
	// ProbeIntervalMS is how often backend reachability is checked. Zero disables the check.
	ProbeIntervalMS    int     `toml:"probe_interval_ms"`
}

// HandshakeTimeout returns the bound on opening the push channel.
func (r RealtimeConfig) HandshakeTimeout() time.Duration {
	return time.Duration(r.HandshakeTimeoutMS) * time.Millisecond
}

// BaseDelay returns the delay before the first reconnection attempt.
func (r RealtimeConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the ceiling applied to reconnection delays.
func (r RealtimeConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// ProbeInterval returns how often backend reachability is checked.
func (r RealtimeConfig) ProbeInterval() time.Duration {
	return time.Duration(r.ProbeIntervalMS) * time.Millisecond
}

// AuthConfig contains the OAuth2 settings of the identity provider that issues bearer tokens.
type AuthConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// envOverrides lists the settings that deployments may pin through the environment.
type envOverrides struct {
	BackendURL   string `envconfig:"BACKEND_URL"`
	RealtimeURL  string `envconfig:"REALTIME_URL"`
	LogLevel     string `envconfig:"LOG_LEVEL"`
	DatabasePath string `envconfig:"DATABASE_PATH"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overlays GENIE_* environment variables onto the configuration.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if env.BackendURL != "" {
		c.Backend.BaseURL = env.BackendURL
	}
	if env.RealtimeURL != "" {
		c.Backend.RealtimeURL = env.RealtimeURL
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.DatabasePath != "" {
		c.Database.Path = env.DatabasePath
	}
	return nil
}

// Validate checks the settings the realtime and REST layers depend on.
func (c *Config) Validate() error {
	switch {
	case c.Backend.BaseURL == "":
		return fmt.Errorf("%w: backend.base_url is empty", ErrInvalidConfig)
	case c.Backend.RealtimeURL == "":
		return fmt.Errorf("%w: backend.realtime_url is empty", ErrInvalidConfig)
	case c.Backend.RequestsPerSecond < 0:
		return fmt.Errorf("%w: backend.requests_per_second must not be negative", ErrInvalidConfig)
	case c.Realtime.HandshakeTimeoutMS <= 0:
		return fmt.Errorf("%w: realtime.handshake_timeout_ms must be positive", ErrInvalidConfig)
	case c.Realtime.BaseDelayMS <= 0:
		return fmt.Errorf("%w: realtime.base_delay_ms must be positive", ErrInvalidConfig)
	case c.Realtime.MaxDelayMS < c.Realtime.BaseDelayMS:
		return fmt.Errorf("%w: realtime.max_delay_ms is below base_delay_ms", ErrInvalidConfig)
	case c.Realtime.Multiplier < 1:
		return fmt.Errorf("%w: realtime.multiplier must be at least 1", ErrInvalidConfig)
	case c.Realtime.MaxAttempts < 1:
		return fmt.Errorf("%w: realtime.max_attempts must be at least 1", ErrInvalidConfig)
	case c.Realtime.ProbeIntervalMS < 0:
		return fmt.Errorf("%w: realtime.probe_interval_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
