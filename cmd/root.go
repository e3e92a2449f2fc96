package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/qbitprune/cleaner"
	"github.com/s0up4200/qbitprune/config"
	"github.com/s0up4200/qbitprune/qbittorrent"
)

// Exit codes
const (
	exitOK          = 0
	exitError       = 1
	exitConfig      = 2
	exitUnreachable = 3
	exitWarnings    = 4
	exitLocked      = 5
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = zerolog.Nop()

	// Command flags
	dryRun bool

	version   = "dev"
	buildTime = "unknown"
)

// errRunInProgress means another process holds the run lock
var errRunInProgress = errors.New("another qbitprune run is in progress")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "qbitprune",
	Short: "Remove seeded torrents from qBittorrent by retention rules",
	Long: `qbitprune removes torrents from qBittorrent once they have seeded long
enough according to per-category and per-tracker rules, evicts further
removable torrents while free disk space is below a target, and deletes files
in the download folders that no torrent owns anymore.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion sets the version information reported by the version and update commands.
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and exits with a code
// describing the outcome.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	var partial *cleaner.PartialFailureError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrInvalidConfig):
		return exitConfig
	case errors.Is(err, qbittorrent.ErrConnectionFailed):
		return exitUnreachable
	case errors.Is(err, errRunInProgress):
		return exitLocked
	case errors.As(err, &partial):
		return exitWarnings
	default:
		return exitError
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "d", false, "perform a dry run without making changes")
}

// initializeApp loads the configuration and sets up logging
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging).With().Str("run", uuid.NewString()).Logger()

	// Override dry-run from command line if specified
	if cmd.Flags().Changed("dry-run") {
		cfg.Safety.DryRun = dryRun
	}

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format, colored only on a terminal
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// newClient connects to qBittorrent with the configured credentials
func newClient(ctx context.Context) (*qbittorrent.Client, error) {
	opts := []qbittorrent.Option{
		qbittorrent.WithTimeout(time.Duration(cfg.QBittorrent.Timeout) * time.Second),
	}
	if cfg.QBittorrent.BasicUser != "" {
		opts = append(opts, qbittorrent.WithBasicAuth(cfg.QBittorrent.BasicUser, cfg.QBittorrent.BasicPass))
	}
	if cfg.QBittorrent.TLSSkipVerify {
		opts = append(opts, qbittorrent.WithInsecureSkipVerify())
	}

	return qbittorrent.NewClient(ctx, cfg.QBittorrent.URL, cfg.QBittorrent.Username, cfg.QBittorrent.Password, logger, opts...)
}
