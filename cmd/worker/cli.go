package main

import (
	"log"
	"time"

	"github.com/majiddarvishan/zynq-rpc/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type workerSection struct {
	Endpoint          string        `mapstructure:"endpoint"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

type workerConfig struct {
	Service config.ServiceConfig `mapstructure:"service"`
	Log     config.LogConfig     `mapstructure:"log"`
	Worker  workerSection        `mapstructure:"worker"`
}

var (
	cfgFile  string
	endpoint string

	rootCmd = &cobra.Command{
		Use:   "zynq-worker",
		Short: "Example zynq-rpc worker process",
		Long:  `Connects to a dispatcher endpoint, registers, and serves requests.`,
		Run: func(cmd *cobra.Command, args []string) {
			runWorker()
		},
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config", "",
		"config file (not read; worker.yaml is looked up in ., $HOME/.config/zynq and /etc/zynq)",
	)
	rootCmd.Flags().StringVar(
		&endpoint,
		"endpoint", "tcp://127.0.0.1:5700",
		"dispatcher endpoint to connect to",
	)

	if err := viper.BindPFlag("worker.endpoint", rootCmd.Flags().Lookup("endpoint")); err != nil {
		log.Fatal(err)
	}
}

func initConfig() {}

func loadWorkerConfig() workerConfig {
	cfg := workerConfig{
		Service: config.ServiceConfig{ID: "org.zynq.Worker"},
		Log:     config.LogConfig{Level: "info", Formatter: "text"},
		Worker:  workerSection{Endpoint: endpoint, HeartbeatInterval: 3 * time.Second},
	}

	if err := config.LoadConfig("worker", &cfg); err != nil {
		cfg.Log.Level = "info"
	}

	if endpoint != "" {
		cfg.Worker.Endpoint = endpoint
	}

	return cfg
}
