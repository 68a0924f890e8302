package rpc

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds the tunable timing and socket parameters for a dispatcher
// or worker. Zero-value Config is invalid; use DefaultConfig.
type Config struct {
	// HeartbeatInterval (H) is the worker-side idle threshold after which a
	// PING is emitted.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// InactivityCutoff is the dispatcher-side threshold after which a
	// silent worker is evicted from the fleet.
	InactivityCutoff time.Duration `yaml:"inactivity_cutoff"`

	// RequestTimeout (T) is the dispatcher-side per-request deadline.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// SocketHWM is the high-water mark applied to the dispatcher's ROUTER
	// socket.
	SocketHWM int `yaml:"socket_hwm"`

	// EventBufferSize sizes the dispatcher's structured event channel.
	EventBufferSize int `yaml:"event_buffer_size"`
}

// DefaultConfig returns a Config with the defaults named in the protocol
// specification (H=3s, cutoff=10s, T=3s).
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: DefaultHeartbeatInterval,
		InactivityCutoff:  DefaultInactivityCutoff,
		RequestTimeout:    DefaultRequestTimeout,
		SocketHWM:         1000,
		EventBufferSize:   256,
	}
}

// LoadConfig reads a YAML config file, falling back to DefaultConfig for
// any field the file doesn't set. A missing file is not an error; it
// simply yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the timing invariant H < cutoff/2 (§5) along with basic
// positivity constraints.
func (c Config) Validate() error {
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive")
	}
	if c.InactivityCutoff <= 0 {
		return fmt.Errorf("inactivity_cutoff must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.SocketHWM <= 0 {
		return fmt.Errorf("socket_hwm must be positive")
	}
	if c.HeartbeatInterval >= c.InactivityCutoff/2 {
		return fmt.Errorf("heartbeat_interval (%s) must be less than inactivity_cutoff/2 (%s)",
			c.HeartbeatInterval, c.InactivityCutoff/2)
	}
	return nil
}
