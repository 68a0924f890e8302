// Package config holds the configuration types shared across the
// dispatcher and worker binaries: logging, Loki shipping, and service
// identity.
package config

// LokiConfig configures optional log shipping to a Loki endpoint.
type LokiConfig struct {
	Address string            `yaml:"address" mapstructure:"address"`
	Labels  map[string]string `yaml:"labels" mapstructure:"labels"`
}

// LogConfig configures the logrus standard logger: level, formatter, and
// an optional Loki hook.
type LogConfig struct {
	Level     string     `yaml:"level" mapstructure:"level"`
	Formatter string     `yaml:"formatter" mapstructure:"formatter"`
	Loki      LokiConfig `yaml:"loki" mapstructure:"loki"`
}

// ServiceConfig identifies a dispatcher or worker instance, independent of
// its routing identity on the wire.
type ServiceConfig struct {
	ID string `yaml:"id" mapstructure:"id"`
}
