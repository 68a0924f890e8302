// Package log configures the process-wide logrus standard logger from a
// config.LogConfig, optionally shipping logs to Loki.
package log

import (
	log "github.com/sirupsen/logrus"
	loki "github.com/yukitsune/lokirus"

	"github.com/majiddarvishan/zynq-rpc/internal/config"
)

// Initialize sets the standard logger's level and formatter from cfg, and
// installs a Loki hook when cfg.Loki.Address is set. An unrecognized level
// string leaves the current level unchanged.
func Initialize(cfg config.LogConfig) {
	if level, err := log.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}

	if cfg.Formatter == "json" {
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if cfg.Loki.Address == "" {
		return
	}

	labels := loki.Labels{}
	for k, v := range cfg.Loki.Labels {
		labels[k] = v
	}

	opts := loki.NewLokiHookOptions().WithLevelMap(
		loki.LevelMap{log.PanicLevel: "critical"},
	).WithFormatter(
		&log.JSONFormatter{},
	).WithStaticLabels(labels)

	hook := loki.NewLokiHookWithOpts(
		cfg.Loki.Address,
		opts,
		log.InfoLevel,
		log.WarnLevel,
		log.ErrorLevel,
		log.FatalLevel,
	)

	log.AddHook(hook)
}
