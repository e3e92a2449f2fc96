package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Load loads the configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix("QBITPRUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".qbitprune"))
		}

		// Check /etc
		v.AddConfigPath("/etc/qbitprune/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: config file not found: %w", ErrInvalidConfig, err)
		}
		return nil, fmt.Errorf("%w: error reading config: %w", ErrInvalidConfig, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling config: %w", ErrInvalidConfig, err)
	}

	cfg.Cleanup.RulesFile = expandPath(cfg.Cleanup.RulesFile)
	cfg.Cleanup.LogFile = expandPath(cfg.Cleanup.LogFile)
	cfg.Cleanup.LockFile = expandPath(cfg.Cleanup.LockFile)
	cfg.Metrics.Textfile = expandPath(cfg.Metrics.Textfile)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// qBittorrent defaults
	v.SetDefault("qbittorrent.url", "http://localhost:9148")
	v.SetDefault("qbittorrent.username", "")
	v.SetDefault("qbittorrent.password", "")
	v.SetDefault("qbittorrent.basic_user", "")
	v.SetDefault("qbittorrent.basic_pass", "")
	v.SetDefault("qbittorrent.tls_skip_verify", false)
	v.SetDefault("qbittorrent.timeout", 30)

	// Cleanup defaults
	v.SetDefault("cleanup.rules_file", "~/.config/qbitprune/rules.yaml")
	v.SetDefault("cleanup.log_file", "~/.config/qbitprune/qbitprune.log")
	v.SetDefault("cleanup.lock_file", filepath.Join(os.TempDir(), "qbitprune.lock"))
	v.SetDefault("cleanup.required_space", "300GiB")
	v.SetDefault("cleanup.leeway", 1.15)
	v.SetDefault("cleanup.delete_files", false)
	v.SetDefault("cleanup.run_timeout", "0s")

	// Reconcile defaults
	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.skip_dirs", []string{"temp"})
	v.SetDefault("reconcile.ignore_markers", []string{".stfolder", ".stignore", ".!qB"})

	v.SetDefault("metrics.textfile", "")

	// Safety defaults
	v.SetDefault("safety.dry_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.QBittorrent.URL == "" {
		return fmt.Errorf("qbittorrent.url is required")
	}

	if cfg.QBittorrent.Timeout < 0 {
		return fmt.Errorf("qbittorrent.timeout must not be negative")
	}

	if cfg.Cleanup.RulesFile == "" {
		return fmt.Errorf("cleanup.rules_file is required")
	}

	required, err := humanize.ParseBytes(cfg.Cleanup.RequiredSpace)
	if err != nil {
		return fmt.Errorf("invalid cleanup.required_space %q: %w", cfg.Cleanup.RequiredSpace, err)
	}
	cfg.Cleanup.RequiredBytes = int64(required)

	if cfg.Cleanup.Leeway <= 1 {
		return fmt.Errorf("cleanup.leeway must be greater than 1, got %g", cfg.Cleanup.Leeway)
	}

	if cfg.Cleanup.RunTimeout < 0 {
		return fmt.Errorf("cleanup.run_timeout must not be negative")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// expandPath replaces a leading ~ with the user's home directory
func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
