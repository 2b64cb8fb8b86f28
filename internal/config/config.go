// Package config loads process configuration from timekiosk.yaml and
// TIMEKIOSK_* environment variables, with sane defaults for a device
// that has never been configured.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	Database Database `mapstructure:"database" yaml:"database"`
	Log      Log      `mapstructure:"log" yaml:"log"`
	Hub      Hub      `mapstructure:"hub" yaml:"hub"`
	Device   Device   `mapstructure:"device" yaml:"device"`
}

// Database configures the device store.
type Database struct {
	Path string `mapstructure:"path" yaml:"path"`
	// Passphrase enables encryption at rest. Empty disables it, which is
	// how the hub runs.
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase"`
}

// Log configures logging.
type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Hub configures the hub server.
type Hub struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Path string `mapstructure:"path" yaml:"path"`
}

// Device identifies this kiosk in logs.
type Device struct {
	Name string `mapstructure:"name" yaml:"name"`
}

// Load reads configuration. path, when non-empty, names an explicit
// config file; otherwise timekiosk.yaml is searched for in the working
// directory. A missing file is not an error: defaults plus environment
// cover the zero-config case.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("database.path", "timekiosk.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("hub.addr", ":5984")
	v.SetDefault("hub.path", "hub.db")
	v.SetDefault("device.name", "kiosk")

	v.SetEnvPrefix("TIMEKIOSK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("timekiosk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
