package retention

import (
	"math"
	"slices"
	"time"

	"github.com/s0up4200/qbitprune/qbittorrent"
)

// MaxScore is the upper bound of Score.
const MaxScore = 99

// Value is the unbounded worth of keeping a torrent: ratio earned per unit of
// seed time, penalised by inactivity. Torrents that have not seeded at all
// have no meaningful ratio rate and are valued at +Inf.
func Value(torrent *qbittorrent.TorrentInfo, now time.Time) float64 {
	seedDays := float64(torrent.SeedingTime) / float64(Day)
	if seedDays <= 0 {
		return math.Inf(1)
	}

	inactiveDays := max(0, float64(now.Sub(torrent.LastActivity))/float64(Day))

	return (torrent.Ratio*100)/math.Pow(seedDays, 0.75) - math.Pow(inactiveDays, 1.5)
}

// Score is Value clamped to [0, MaxScore]. Lower scores are removed first.
func Score(torrent *qbittorrent.TorrentInfo, now time.Time) float64 {
	return clamp(0, MaxScore, Value(torrent, now))
}

func clamp(low, high, value float64) float64 {
	if math.IsNaN(value) {
		return low
	}
	return math.Max(low, math.Min(high, value))
}

// Rank orders decisions by ascending value. Equal values keep their
// classification order.
func Rank(decisions []Decision) {
	slices.SortStableFunc(decisions, func(a, b Decision) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		default:
			return 0
		}
	})
}
