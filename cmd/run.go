package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/s0up4200/qbitprune/cleaner"
	"github.com/s0up4200/qbitprune/config"
	"github.com/s0up4200/qbitprune/filter"
	"github.com/s0up4200/qbitprune/journal"
	"github.com/s0up4200/qbitprune/metrics"
	"github.com/s0up4200/qbitprune/reconcile"
)

var (
	deleteFiles   bool
	noReconcile   bool
	requiredSpace string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Remove torrents according to the retention rules",
	Long: `Run a full cleanup pass:
- Remove every torrent whose rule says it must go
- Remove further removable torrents, lowest value first, until the free space target is met
- Delete files and folders in the download folders that no torrent owns`,
	PreRunE: initializeApp,
	RunE:    runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&deleteFiles, "delete-files", false, "also delete torrent data through qBittorrent")
	runCmd.Flags().BoolVar(&noReconcile, "no-reconcile", false, "skip deleting files no torrent owns")
	runCmd.Flags().StringVar(&requiredSpace, "required-space", "", "override the free space target, e.g. 500GiB")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext(cmd.Context())
	defer cancel()

	lock := flock.New(cfg.Cleanup.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w (lock file %s)", errRunInProgress, cfg.Cleanup.LockFile)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn().Err(err).Msg("Failed to release run lock")
		}
	}()

	fs := afero.NewOsFs()
	opts, err := cleanerOptions(cmd, fs)
	if err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	var cleanerOpts []cleaner.Option
	if !opts.DryRun {
		j, err := journal.Open(fs, cfg.Cleanup.LogFile, opts.Now)
		if err != nil {
			return err
		}
		defer func() {
			if err := j.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close journal")
			}
		}()
		cleanerOpts = append(cleanerOpts, cleaner.WithJournal(j))
	} else {
		logger.Info().Msg("Dry run mode - nothing will be removed")
	}

	c := cleaner.New(client, newReconciler(fs), logger, cleanerOpts...)

	report, runErr := c.Run(ctx, opts)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
		writeMetrics(report, time.Since(opts.Now))
	}
	return runErr
}

// runContext cancels on SIGINT/SIGTERM and after cleanup.run_timeout
func runContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if cfg.Cleanup.RunTimeout <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Cleanup.RunTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// cleanerOptions loads the rules file and merges it with config and flags
func cleanerOptions(cmd *cobra.Command, fs afero.Fs) (cleaner.Options, error) {
	compiler := filter.NewCompiler(filter.WithCache(64), filter.WithLogger(logger))
	rules, err := config.LoadRules(fs, cfg.Cleanup.RulesFile, compiler)
	if err != nil {
		return cleaner.Options{}, err
	}

	opts := cleaner.Options{
		Rules:         rules.Rules,
		Folders:       rules.Folders,
		RequiredSpace: cfg.Cleanup.RequiredBytes,
		Leeway:        cfg.Cleanup.Leeway,
		DeleteFiles:   cfg.Cleanup.DeleteFiles,
		DryRun:        cfg.Safety.DryRun,
		Reconcile:     cfg.Reconcile.Enabled,
		Now:           time.Now(),
	}

	flags := cmd.Flags()
	if flags.Lookup("delete-files") != nil && flags.Changed("delete-files") {
		opts.DeleteFiles = deleteFiles
	}
	if flags.Lookup("no-reconcile") != nil && noReconcile {
		opts.Reconcile = false
	}
	if flags.Lookup("required-space") != nil && requiredSpace != "" {
		bytes, err := humanize.ParseBytes(requiredSpace)
		if err != nil {
			return cleaner.Options{}, fmt.Errorf("%w: invalid --required-space %q: %w", config.ErrInvalidConfig, requiredSpace, err)
		}
		opts.RequiredSpace = int64(bytes)
	}

	logger.Debug().
		Int("rules", len(opts.Rules)).
		Strs("folders", opts.Folders).
		Str("required_space", humanize.IBytes(uint64(opts.RequiredSpace))).
		Float64("leeway", opts.Leeway).
		Msg("Loaded rules")

	return opts, nil
}

func newReconciler(fs afero.Fs) *reconcile.Reconciler {
	return reconcile.New(fs, logger,
		reconcile.WithSkipDirs(cfg.Reconcile.SkipDirs...),
		reconcile.WithIgnoreMarkers(cfg.Reconcile.IgnoreMarkers...),
	)
}

func writeMetrics(report *cleaner.Report, duration time.Duration) {
	if cfg.Metrics.Textfile == "" {
		return
	}

	m := metrics.NewRunMetrics()
	m.Observe(report, duration)
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn().Err(err).Msg("Failed to write metrics")
		return
	}
	logger.Debug().Str("path", cfg.Metrics.Textfile).Msg("Metrics written")
}
