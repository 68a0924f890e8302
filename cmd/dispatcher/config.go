package main

import (
	"time"

	"github.com/majiddarvishan/zynq-rpc/internal/config"
)

type brokerSection struct {
	Endpoint          string        `mapstructure:"endpoint"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	InactivityCutoff  time.Duration `mapstructure:"inactivity_cutoff"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

type adminSection struct {
	Enabled bool   `mapstructure:"enabled"`
	Bind    string `mapstructure:"bind"`
}

type dispatcherConfig struct {
	Service config.ServiceConfig `mapstructure:"service"`
	Log     config.LogConfig     `mapstructure:"log"`
	Broker  brokerSection        `mapstructure:"broker"`
	Admin   adminSection         `mapstructure:"admin"`
}

func loadDispatcherConfig() dispatcherConfig {
	cfg := dispatcherConfig{
		Service: config.ServiceConfig{ID: "org.zynq.Dispatcher"},
		Log:     config.LogConfig{Level: "info", Formatter: "text"},
		Broker:  brokerSection{Endpoint: "tcp://0.0.0.0:5700"},
		Admin:   adminSection{Enabled: false, Bind: "127.0.0.1:8700"},
	}

	if err := config.LoadConfig("dispatcher", &cfg); err != nil {
		// A missing config file is handled inside LoadConfig. Any other read
		// or decode error is discarded without being reported: cfg keeps the
		// defaults populated above (plus whatever the decode applied) and
		// the log level is reset to info.
		cfg.Log.Level = "info"
	}

	return cfg
}
