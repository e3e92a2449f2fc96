package cleaner

import (
	"time"

	"github.com/s0up4200/qbitprune/fsutil"
	"github.com/s0up4200/qbitprune/qbittorrent"
	"github.com/s0up4200/qbitprune/reconcile"
	"github.com/s0up4200/qbitprune/retention"
)

// Report describes what a run found and did
type Report struct {
	Started        time.Time
	DryRun         bool
	Usage          fsutil.DiskUsage
	RequiredSpace  int64
	Classification *retention.Classification
	MustRemoveSize int64
	Eviction       retention.Plan
	// Removed lists the torrents deleted from qBittorrent, or that would be in a dry run.
	Removed []retention.Decision
	// Kept are the removable torrents the eviction plan did not need.
	Kept      []retention.Decision
	Folders   []reconcile.Report
	Unhandled []*qbittorrent.TorrentInfo
	Failures  []error
}

// Shortfall is the free space still missing after every candidate was evicted
func (r *Report) Shortfall() int64 {
	return r.Eviction.Remaining
}

// RemovedSize sums the size of the removed torrents
func (r *Report) RemovedSize() int64 {
	return retention.TotalSize(r.Removed)
}

// KeptSize sums the size of the kept removable torrents
func (r *Report) KeptSize() int64 {
	return retention.TotalSize(r.Kept)
}

// AverageScore is the mean score over every removable torrent, evicted or not
func (r *Report) AverageScore() float64 {
	if r.Classification == nil || len(r.Classification.CanRemove) == 0 {
		return 0
	}
	var sum float64
	for _, d := range r.Classification.CanRemove {
		sum += d.Score
	}
	return sum / float64(len(r.Classification.CanRemove))
}

// Reclaimed sums the space freed by folder cleanup
func (r *Report) Reclaimed() int64 {
	var total int64
	for _, f := range r.Folders {
		total += f.Reclaimed
	}
	return total
}

// Dangling counts the dangling entries found across all folders
func (r *Report) Dangling() int {
	var n int
	for _, f := range r.Folders {
		n += len(f.Dangling)
	}
	return n
}
