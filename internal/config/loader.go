package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadConfig reads name.yaml from the current directory, $HOME/.config/zynq,
// and /etc/zynq (in that order of precedence), overlays any ZYNQ_-prefixed
// environment variables, and decodes the result into out.
//
// A missing config file is not an error: out keeps whatever zero/default
// values it already had.
func LoadConfig(name string, out interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/zynq")
	v.AddConfigPath("/etc/zynq")

	v.SetEnvPrefix("zynq")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config %s: %w", name, err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("decode config %s: %w", name, err)
	}
	return nil
}
