package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the relay configuration.
const (
	DefaultHTTPPort          = 8765
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultMaxBufferedBytes  = 5 << 20 // 5 MiB
	DefaultEvictionTTL       = time.Hour
)

// Config holds the relay configuration parsed from the `relay:` section of
// config.yaml.
type Config struct {
	Relay RelayConfig `yaml:"relay"`
}

// RelayConfig holds all relay settings.
type RelayConfig struct {
	// HTTPPort is the port the relay listens on (default 8765).
	HTTPPort int `yaml:"http_port"`

	// Auth configures the shared-secret check applied before upgrade.
	Auth AuthConfig `yaml:"auth"`

	// Heartbeat controls the dead-viewer detection sweep.
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`

	// Backpressure controls per-viewer delivery drop policy.
	Backpressure BackpressureConfig `yaml:"backpressure"`

	// Rooms controls idle-room eviction.
	Rooms RoomsConfig `yaml:"rooms"`
}

// AuthConfig controls connection admission.
type AuthConfig struct {
	// Mode is one of: key | none. With "none" (or empty) every connection
	// with a valid path is admitted.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the shared
	// secret. Used when Mode == "key".
	KeyEnv string `yaml:"key_env"`
}

// Secret returns the effective shared secret: the value of KeyEnv when
// Mode == "key", otherwise the empty string (auth disabled).
func (a AuthConfig) Secret() string {
	if a.Mode != "key" || a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// HeartbeatConfig controls the viewer liveness sweep.
type HeartbeatConfig struct {
	// Interval is the time between ping sweeps. A viewer that has not
	// answered the previous sweep's ping by the next tick is terminated.
	// Default: 30s.
	Interval time.Duration `yaml:"interval"`
}

// BackpressureConfig controls per-viewer delivery drop policy.
type BackpressureConfig struct {
	// MaxBufferedBytes is the outbound buffer occupancy above which frame
	// deliveries to a viewer are dropped instead of queued. Default: 5 MiB.
	MaxBufferedBytes int64 `yaml:"max_buffered_bytes"`
}

// RoomsConfig controls idle-room eviction.
type RoomsConfig struct {
	// EvictionTTL is how long a room with no connected viewers is kept
	// after its last publish. Zero disables eviction. Default: 1h.
	EvictionTTL time.Duration `yaml:"eviction_ttl"`
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("relay config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("relay config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("relay config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Relay: RelayConfig{
			HTTPPort: DefaultHTTPPort,
			Heartbeat: HeartbeatConfig{
				Interval: DefaultHeartbeatInterval,
			},
			Backpressure: BackpressureConfig{
				MaxBufferedBytes: DefaultMaxBufferedBytes,
			},
			Rooms: RoomsConfig{
				EvictionTTL: DefaultEvictionTTL,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Relay.HTTPPort <= 0 || cfg.Relay.HTTPPort > 65535 {
		return fmt.Errorf("relay.http_port %d is out of range [1, 65535]", cfg.Relay.HTTPPort)
	}
	switch cfg.Relay.Auth.Mode {
	case "key", "none", "":
	default:
		return fmt.Errorf("relay.auth.mode %q unknown: want key|none", cfg.Relay.Auth.Mode)
	}
	if cfg.Relay.Auth.Mode == "key" && cfg.Relay.Auth.KeyEnv == "" {
		return fmt.Errorf("relay.auth.key_env must be set when mode is key")
	}
	if cfg.Relay.Heartbeat.Interval <= 0 {
		return fmt.Errorf("relay.heartbeat.interval must be positive")
	}
	if cfg.Relay.Backpressure.MaxBufferedBytes <= 0 {
		return fmt.Errorf("relay.backpressure.max_buffered_bytes must be positive")
	}
	if cfg.Relay.Rooms.EvictionTTL < 0 {
		return fmt.Errorf("relay.rooms.eviction_ttl must not be negative")
	}
	return nil
}
