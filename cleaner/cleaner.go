// Package cleaner runs one complete retention pass: it classifies every
// torrent, removes the ones whose rules demand it, evicts removable torrents
// until the free space target is met and finally deletes files no torrent owns.
package cleaner

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/s0up4200/qbitprune/fsutil"
	"github.com/s0up4200/qbitprune/qbittorrent"
	"github.com/s0up4200/qbitprune/reconcile"
	"github.com/s0up4200/qbitprune/retention"
)

// TorrentClient is the part of the qBittorrent client a run needs
type TorrentClient interface {
	GetAllTorrents(ctx context.Context) ([]*qbittorrent.TorrentInfo, error)
	LoadFiles(ctx context.Context, torrents []*qbittorrent.TorrentInfo) error
	DeleteTorrents(ctx context.Context, hashes []string, deleteFiles bool) error
}

// FolderReconciler finds and removes files no torrent owns
type FolderReconciler interface {
	Scan(ctx context.Context, roots []string, torrents []*qbittorrent.TorrentInfo) ([]reconcile.Report, error)
	Reconcile(ctx context.Context, roots []string, torrents []*qbittorrent.TorrentInfo) ([]reconcile.Report, error)
}

// Journal records removed torrents
type Journal interface {
	Record(line string) error
}

// UsageFunc measures the filesystem holding path
type UsageFunc func(path string) (fsutil.DiskUsage, error)

// Options controls a single run
type Options struct {
	Rules         []retention.Rule
	Folders       []string
	RequiredSpace int64
	Leeway        float64
	DeleteFiles   bool
	DryRun        bool
	Reconcile     bool
	// Now is the reference time for every age computed in the run. Zero means time.Now().
	Now time.Time
}

// Option configures a Cleaner
type Option func(*Cleaner)

// WithJournal records every removed torrent to j
func WithJournal(j Journal) Option {
	return func(c *Cleaner) {
		c.journal = j
	}
}

// WithUsageFunc replaces the disk usage probe
func WithUsageFunc(fn UsageFunc) Option {
	return func(c *Cleaner) {
		c.usage = fn
	}
}

// Cleaner orchestrates a retention run
type Cleaner struct {
	client     TorrentClient
	reconciler FolderReconciler
	journal    Journal
	usage      UsageFunc
	logger     zerolog.Logger
}

// New creates a Cleaner
func New(client TorrentClient, reconciler FolderReconciler, logger zerolog.Logger, opts ...Option) *Cleaner {
	c := &Cleaner{
		client:     client,
		reconciler: reconciler,
		usage:      fsutil.Usage,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Plan computes what a run would remove without changing anything
func (c *Cleaner) Plan(ctx context.Context, opts Options) (*Report, error) {
	opts.DryRun = true
	return c.Run(ctx, opts)
}

// Run performs a retention pass. Failures to reach qBittorrent or measure the
// disk abort before anything is removed. Failures while removing are
// collected and returned together as a *PartialFailureError after the run
// finishes, along with the report.
func (c *Cleaner) Run(ctx context.Context, opts Options) (*Report, error) {
	if len(opts.Folders) == 0 {
		return nil, ErrNoFolders
	}
	if opts.Leeway == 0 {
		opts.Leeway = retention.DefaultLeeway
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	report := &Report{
		Started:       now,
		RequiredSpace: opts.RequiredSpace,
		DryRun:        opts.DryRun,
	}

	usage, err := c.usage(opts.Folders[0])
	if err != nil {
		return nil, fmt.Errorf("failed to measure disk usage: %w", err)
	}
	report.Usage = usage

	c.logger.Info().
		Str("total", humanize.IBytes(uint64(usage.Total))).
		Str("used", humanize.IBytes(uint64(usage.Used))).
		Str("free", humanize.IBytes(uint64(usage.Free))).
		Str("target", humanize.IBytes(uint64(opts.RequiredSpace))).
		Msg("Currently available disk space")

	torrents, err := c.client.GetAllTorrents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve torrents: %w", err)
	}

	cls := retention.Classify(torrents, opts.Rules, now, opts.Leeway)
	report.Classification = cls
	for _, stat := range cls.Stats {
		c.logger.Info().
			Str("rule", stat.Rule).
			Int("torrents", stat.Count).
			Str("size", humanize.IBytes(uint64(stat.Size))).
			Msg("Rule matched torrents")
	}

	report.MustRemoveSize = retention.TotalSize(cls.MustRemove)
	c.logger.Info().Int("count", len(cls.MustRemove)).Msg("Torrents that satisfied their rule and will be removed")
	if err := c.remove(ctx, cls.MustRemove, opts, now); err != nil {
		report.Failures = append(report.Failures, err)
		// nothing was freed, the eviction plan must not count on it
		report.MustRemoveSize = 0
	} else {
		report.Removed = append(report.Removed, cls.MustRemove...)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.Eviction = retention.PlanEviction(cls.CanRemove, usage.Free, opts.RequiredSpace, report.MustRemoveSize)
	if report.Eviction.Deficit == 0 {
		c.logger.Info().Msg("No further torrents need to be removed")
	} else {
		c.logger.Info().
			Str("deficit", humanize.IBytes(uint64(report.Eviction.Deficit))).
			Int("count", len(report.Eviction.Selected)).
			Msg("Torrents that met their requirements and will be removed for additional disk space")
		if err := c.remove(ctx, report.Eviction.Selected, opts, now); err != nil {
			report.Failures = append(report.Failures, err)
		} else {
			report.Removed = append(report.Removed, report.Eviction.Selected...)
		}
	}
	if !report.Eviction.Satisfied() {
		c.logger.Warn().
			Str("short", humanize.IBytes(uint64(report.Eviction.Remaining))).
			Msg("Running out of disk space with no additional torrents to remove")
	}
	report.Kept = cls.CanRemove[len(report.Eviction.Selected):]
	if err := ctx.Err(); err != nil {
		return report, err
	}

	remaining, err := c.client.GetAllTorrents(ctx)
	if err != nil {
		report.Failures = append(report.Failures, fmt.Errorf("failed to refresh torrents: %w", err))
	} else {
		if opts.DryRun {
			remaining = withoutRemoved(remaining, report.Removed)
		}
		report.Unhandled = cls.Unhandled(remaining)

		if opts.Reconcile && c.reconciler != nil {
			if err := c.reconcile(ctx, report, remaining, opts); err != nil {
				return report, err
			}
		}
	}

	if len(report.Failures) > 0 || report.Shortfall() > 0 {
		return report, &PartialFailureError{
			Failures:  report.Failures,
			Shortfall: report.Shortfall(),
		}
	}
	return report, nil
}

// remove deletes the torrents in one call and journals them once the delete
// succeeded. Dry runs only log.
func (c *Cleaner) remove(ctx context.Context, decisions []retention.Decision, opts Options, now time.Time) error {
	if len(decisions) == 0 {
		return nil
	}

	lines := make([]string, len(decisions))
	hashes := make([]string, len(decisions))
	for i, d := range decisions {
		lines[i] = Summary(d.Torrent, now)
		hashes[i] = d.Torrent.Hash
		c.logger.Info().Str("hash", d.Torrent.Hash).Str("rule", d.Rule).Bool("dry_run", opts.DryRun).Msg(lines[i])
	}

	if opts.DryRun {
		return nil
	}

	if err := c.client.DeleteTorrents(ctx, hashes, opts.DeleteFiles); err != nil {
		c.logger.Error().Err(err).Int("count", len(hashes)).Msg("Failed to remove torrents")
		return err
	}

	if c.journal != nil {
		for _, line := range lines {
			if err := c.journal.Record(line); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to write journal entry")
			}
		}
	}

	c.logger.Info().
		Int("count", len(hashes)).
		Str("size", humanize.IBytes(uint64(retention.TotalSize(decisions)))).
		Msg("Removed torrents")
	return nil
}

// reconcile removes dangling entries from every folder. Without a complete
// file list for the remaining torrents nothing is deleted, since every
// unlisted file would look dangling.
func (c *Cleaner) reconcile(ctx context.Context, report *Report, remaining []*qbittorrent.TorrentInfo, opts Options) error {
	if err := c.client.LoadFiles(ctx, remaining); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		report.Failures = append(report.Failures, fmt.Errorf("skipping folder cleanup: %w", err))
		c.logger.Error().Err(err).Msg("Failed to load torrent files, skipping folder cleanup")
		return nil
	}

	var (
		folders []reconcile.Report
		err     error
	)
	if opts.DryRun {
		folders, err = c.reconciler.Scan(ctx, opts.Folders, remaining)
	} else {
		folders, err = c.reconciler.Reconcile(ctx, opts.Folders, remaining)
	}
	report.Folders = folders
	for _, f := range folders {
		report.Failures = append(report.Failures, f.Errors()...)
		c.logger.Info().
			Str("root", f.Root).
			Int("dangling", len(f.Dangling)).
			Int("removed", len(f.Removed)).
			Str("reclaimed", humanize.IBytes(uint64(f.Reclaimed))).
			Msg("Folder cleanup finished")
	}
	return err
}

func withoutRemoved(torrents []*qbittorrent.TorrentInfo, removed []retention.Decision) []*qbittorrent.TorrentInfo {
	gone := make(map[string]struct{}, len(removed))
	for _, d := range removed {
		gone[d.Torrent.Hash] = struct{}{}
	}

	out := make([]*qbittorrent.TorrentInfo, 0, len(torrents))
	for _, t := range torrents {
		if _, ok := gone[t.Hash]; !ok {
			out = append(out, t)
		}
	}
	return out
}
