package cleaner

import (
	"fmt"
	"time"

	"github.com/s0up4200/qbitprune/qbittorrent"
	"github.com/s0up4200/qbitprune/retention"
)

const gib = 1 << 30

// Summary formats the one-line description of a torrent used in the journal
// and the console output.
func Summary(torrent *qbittorrent.TorrentInfo, now time.Time) string {
	seedDays := float64(torrent.SeedingTime) / float64(retention.Day)
	inactiveDays := max(0, float64(now.Sub(torrent.LastActivity))/float64(retention.Day))

	return fmt.Sprintf("Value: %2.0f, Seed time: %5.1f days, Last transfer: %5.1f days, Ratio: %4.1f, Size: %5.1f GiB, Category: %s, Tracker: %s, Name: %s",
		retention.Score(torrent, now),
		seedDays,
		inactiveDays,
		torrent.Ratio,
		float64(torrent.Size)/gib,
		torrent.Category,
		torrent.TrackerHost,
		torrent.Name,
	)
}
