// Package reconcile finds and removes files and folders under the download
// roots that no torrent in qBittorrent owns anymore.
//
// Each root is expected to hold one directory per category; entries one level
// below those directories are compared against the paths every known torrent
// claims. Anything unclaimed is dangling.
package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/s0up4200/qbitprune/fsutil"
	"github.com/s0up4200/qbitprune/qbittorrent"
)

// Defaults for Options.
var (
	DefaultSkipDirs      = []string{"temp"}
	DefaultIgnoreMarkers = []string{".stfolder", ".stignore", ".!qB"}
)

// SpaceFunc reports the free bytes of the filesystem holding path
type SpaceFunc func(path string) (int64, error)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSkipDirs sets the category directories that are never scanned.
func WithSkipDirs(dirs ...string) Option {
	return func(r *Reconciler) {
		r.skipDirs = dirs
	}
}

// WithIgnoreMarkers sets substrings that exclude an entry from the scan.
func WithIgnoreMarkers(markers ...string) Option {
	return func(r *Reconciler) {
		r.ignoreMarkers = markers
	}
}

// WithSpaceFunc replaces the free space probe.
func WithSpaceFunc(fn SpaceFunc) Option {
	return func(r *Reconciler) {
		r.freeSpace = fn
	}
}

// Reconciler removes dangling entries from download roots
type Reconciler struct {
	fs            afero.Fs
	freeSpace     SpaceFunc
	skipDirs      []string
	ignoreMarkers []string
	logger        zerolog.Logger
}

// New creates a Reconciler over fs. Use afero.NewOsFs() for the real disk.
func New(fs afero.Fs, logger zerolog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		fs:            fs,
		freeSpace:     fsutil.FreeSpace,
		skipDirs:      DefaultSkipDirs,
		ignoreMarkers: DefaultIgnoreMarkers,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report is the outcome of reconciling one root
type Report struct {
	Root     string
	Dangling []string
	Removed  []string
	// Missing entries disappeared between the scan and their deletion.
	Missing []string
	// Shared entries are files with other hardlinks; removing them frees no space.
	Shared    []string
	Failed    []*PathError
	Reclaimed int64
}

// Errors returns the failures as plain errors
func (r Report) Errors() []error {
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errs
}

// OwnedPaths builds the set of paths claimed by the torrents
func OwnedPaths(torrents []*qbittorrent.TorrentInfo) map[string]struct{} {
	owned := make(map[string]struct{})
	for _, t := range torrents {
		for _, p := range t.OwnedPaths() {
			owned[p] = struct{}{}
		}
	}
	return owned
}

// Dangling returns the entries not present in owned, sorted
func Dangling(entries []string, owned map[string]struct{}) []string {
	var out []string
	for _, e := range entries {
		if _, ok := owned[filepath.Clean(e)]; !ok {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return out
}

// Enumerate lists every entry one level below each category directory of root
func (r *Reconciler) Enumerate(root string) ([]string, []*PathError) {
	categories, err := afero.ReadDir(r.fs, root)
	if err != nil {
		return nil, []*PathError{{Op: "readdir", Path: root, Err: err}}
	}

	var (
		entries []string
		failed  []*PathError
	)
	for _, category := range categories {
		dir := filepath.Join(root, category.Name())
		if !r.isDir(dir, category) || slices.Contains(r.skipDirs, category.Name()) {
			continue
		}

		items, err := afero.ReadDir(r.fs, dir)
		if err != nil {
			failed = append(failed, &PathError{Op: "readdir", Path: dir, Err: err})
			continue
		}

		for _, item := range items {
			if r.ignored(item.Name()) {
				continue
			}
			entries = append(entries, filepath.Join(dir, item.Name()))
		}
	}

	return entries, failed
}

// isDir follows symlinked category directories. Broken links are skipped.
func (r *Reconciler) isDir(path string, fi os.FileInfo) bool {
	if fi.Mode()&os.ModeSymlink == 0 {
		return fi.IsDir()
	}
	target, err := r.fs.Stat(path)
	return err == nil && target.IsDir()
}

func (r *Reconciler) ignored(name string) bool {
	for _, marker := range r.ignoreMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Scan computes the dangling entries of every root without deleting anything
func (r *Reconciler) Scan(ctx context.Context, roots []string, torrents []*qbittorrent.TorrentInfo) ([]Report, error) {
	owned := OwnedPaths(torrents)

	reports := make([]Report, 0, len(roots))
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		entries, failed := r.Enumerate(root)
		report := Report{
			Root:     root,
			Dangling: Dangling(entries, owned),
			Failed:   failed,
		}
		for _, p := range report.Dangling {
			if r.isShared(p) {
				report.Shared = append(report.Shared, p)
			}
		}
		reports = append(reports, report)
	}

	return reports, nil
}

// Reconcile deletes the dangling entries of every root in lexicographic
// order. Individual failures are recorded in the report and do not stop the
// run; only context cancellation returns an error.
func (r *Reconciler) Reconcile(ctx context.Context, roots []string, torrents []*qbittorrent.TorrentInfo) ([]Report, error) {
	owned := OwnedPaths(torrents)

	reports := make([]Report, 0, len(roots))
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		report, err := r.reconcileRoot(ctx, root, owned)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}

	return reports, nil
}

func (r *Reconciler) reconcileRoot(ctx context.Context, root string, owned map[string]struct{}) (Report, error) {
	logger := r.logger.With().Str("root", root).Logger()

	before, spaceErr := r.freeSpace(root)
	if spaceErr != nil {
		logger.Warn().Err(spaceErr).Msg("Failed to measure free space")
	}

	entries, failed := r.Enumerate(root)
	report := Report{
		Root:     root,
		Dangling: Dangling(entries, owned),
		Failed:   failed,
	}

	for i, path := range report.Dangling {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		logger.Info().Str("path", path).Msgf("[%d/%d] Removing dangling entry", i+1, len(report.Dangling))

		shared, err := r.remove(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			report.Missing = append(report.Missing, path)
			logger.Debug().Str("path", path).Msg("Entry already gone")
		case err != nil:
			var pathErr *PathError
			if !errors.As(err, &pathErr) {
				pathErr = &PathError{Op: "remove", Path: path, Err: err}
			}
			report.Failed = append(report.Failed, pathErr)
			logger.Warn().Err(err).Str("path", path).Msg("Failed to remove dangling entry")
		default:
			report.Removed = append(report.Removed, path)
			if shared {
				report.Shared = append(report.Shared, path)
			}
		}
	}

	if spaceErr == nil {
		after, err := r.freeSpace(root)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to measure free space")
		} else {
			report.Reclaimed = max(0, after-before)
		}
	}

	return report, nil
}

// remove deletes path, choosing recursive removal for directories. The type
// is decided by a fresh stat, so an entry that vanished since the scan is
// reported as os.ErrNotExist.
func (r *Reconciler) remove(path string) (shared bool, err error) {
	fi, err := r.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, os.ErrNotExist
		}
		return false, &PathError{Op: "stat", Path: path, Err: err}
	}

	if fi.IsDir() {
		if err := r.fs.RemoveAll(path); err != nil {
			return false, &PathError{Op: "remove-all", Path: path, Err: err}
		}
		return false, nil
	}

	shared = fsutil.LinkCount(fi) > 1
	if err := r.fs.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, os.ErrNotExist
		}
		return false, &PathError{Op: "remove", Path: path, Err: err}
	}
	return shared, nil
}

func (r *Reconciler) isShared(path string) bool {
	fi, err := r.fs.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	return fsutil.LinkCount(fi) > 1
}
