// Package config loads statectl configuration from file and
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Schema  string
	Storage StorageConfig
	Log     LogConfig
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Driver string
	Path   string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from file and env. Env var overrides use
// prefix STATE_, e.g. STATE_STORAGE_PATH. The config file defaults to
// ~/.config/statectl/config.toml; STATE_CONFIG points elsewhere.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("schema", "")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "statectl", "state.db"))
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("STATE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "statectl"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("STATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// LogLevel maps the configured level name onto slog. Unknown names fall
// back to info.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
