// Package config loads macsweep configuration from
// ~/.config/macsweep/config.yaml, MACSWEEP_* environment variables, and
// built-in defaults, in ascending precedence of defaults < file < env.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	DatabasePath          string `mapstructure:"database_path"`
	BackupDir             string `mapstructure:"backup_dir"`
	WarningDays           int    `mapstructure:"warning_days"`
	ReviewDays            int    `mapstructure:"review_days"`
	CleanupConcurrency    int    `mapstructure:"cleanup_concurrency"`
	RemovalTimeoutSeconds int    `mapstructure:"removal_timeout_seconds"`
	LogLevel              string `mapstructure:"log_level"`
}

// DefaultConfig returns the built-in defaults rooted under the user's
// home directory.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".local", "share", "macsweep")
	return &Config{
		DatabasePath:          filepath.Join(dataDir, "macsweep.db"),
		BackupDir:             filepath.Join(dataDir, "backups"),
		WarningDays:           30,
		ReviewDays:            90,
		CleanupConcurrency:    4,
		RemovalTimeoutSeconds: 120,
		LogLevel:              "info",
	}
}

// Load reads configuration. configDir overrides the default search path
// (~/.config/macsweep); a missing config file is not an error.
func Load(configDir string) (*Config, error) {
	defaults := DefaultConfig()

	v := viper.New()
	v.SetDefault("database_path", defaults.DatabasePath)
	v.SetDefault("backup_dir", defaults.BackupDir)
	v.SetDefault("warning_days", defaults.WarningDays)
	v.SetDefault("review_days", defaults.ReviewDays)
	v.SetDefault("cleanup_concurrency", defaults.CleanupConcurrency)
	v.SetDefault("removal_timeout_seconds", defaults.RemovalTimeoutSeconds)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "macsweep"))
	}

	v.SetEnvPrefix("MACSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.BackupDir == "" {
		return fmt.Errorf("backup_dir must not be empty")
	}
	if c.WarningDays <= 0 || c.ReviewDays <= 0 {
		return fmt.Errorf("thresholds must be positive (warning_days=%d review_days=%d)",
			c.WarningDays, c.ReviewDays)
	}
	if c.WarningDays >= c.ReviewDays {
		return fmt.Errorf("warning_days (%d) must be below review_days (%d)",
			c.WarningDays, c.ReviewDays)
	}
	if c.CleanupConcurrency <= 0 {
		return fmt.Errorf("cleanup_concurrency must be positive")
	}
	if c.RemovalTimeoutSeconds <= 0 {
		return fmt.Errorf("removal_timeout_seconds must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}
