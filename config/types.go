package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	QBittorrent QBittorrentConfig `mapstructure:"qbittorrent"`
	Cleanup     CleanupConfig     `mapstructure:"cleanup"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Safety      SafetyConfig      `mapstructure:"safety"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// QBittorrentConfig holds qBittorrent Web API connection details
type QBittorrentConfig struct {
	URL           string `mapstructure:"url"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	BasicUser     string `mapstructure:"basic_user"`
	BasicPass     string `mapstructure:"basic_pass"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	// Timeout is in seconds
	Timeout int `mapstructure:"timeout"`
}

// CleanupConfig controls which torrents are removed and where that is recorded
type CleanupConfig struct {
	RulesFile     string        `mapstructure:"rules_file"`
	LogFile       string        `mapstructure:"log_file"`
	LockFile      string        `mapstructure:"lock_file"`
	RequiredSpace string        `mapstructure:"required_space"`
	Leeway        float64       `mapstructure:"leeway"`
	DeleteFiles   bool          `mapstructure:"delete_files"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`

	// RequiredBytes is RequiredSpace parsed during validation.
	RequiredBytes int64 `mapstructure:"-"`
}

// ReconcileConfig controls the removal of files no torrent owns
type ReconcileConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	SkipDirs      []string `mapstructure:"skip_dirs"`
	IgnoreMarkers []string `mapstructure:"ignore_markers"`
}

// MetricsConfig contains metrics output settings
type MetricsConfig struct {
	// Textfile is a node_exporter textfile collector path. Empty disables metrics.
	Textfile string `mapstructure:"textfile"`
}

// SafetyConfig contains safety-related settings
type SafetyConfig struct {
	DryRun bool `mapstructure:"dry_run"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
