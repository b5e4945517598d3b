package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/willibrandon/stlog/configuration"
	"github.com/willibrandon/stlog/sinks"
)

// cliConfig locates the durable store the commands work on. Values come
// from flags, STLOG_* environment variables and the config file, in that
// order of precedence.
type cliConfig struct {
	Store     string `mapstructure:"store"`
	StorePath string `mapstructure:"store-path"`
	RedisAddr string `mapstructure:"redis-addr"`
	StoreKey  string `mapstructure:"store-key"`
}

func loadCLIConfig(cmd *cobra.Command, configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("STLOG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("store", "file")
	v.SetDefault("store-path", filepath.Join(home, ".local", "share", "stlog", "buffer"))
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("store-key", sinks.DefaultDurableStoreKey)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "stlog", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	for _, name := range []string{"store", "store-path", "redis-addr", "store-key"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			v.Set(name, f.Value.String())
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// storeComponent describes the configured store the way a logger
// configuration document would.
func (c cliConfig) storeComponent() (configuration.ComponentConfig, error) {
	switch strings.ToLower(c.Store) {
	case "file":
		return configuration.ComponentConfig{Name: "File", Args: map[string]any{"dir": c.StorePath}}, nil
	case "sqlite":
		return configuration.ComponentConfig{Name: "SQLite", Args: map[string]any{"path": c.StorePath}}, nil
	case "redis":
		return configuration.ComponentConfig{Name: "Redis", Args: map[string]any{"addr": c.RedisAddr}}, nil
	default:
		return configuration.ComponentConfig{}, fmt.Errorf("unknown store %q (want file, sqlite or redis)", c.Store)
	}
}
