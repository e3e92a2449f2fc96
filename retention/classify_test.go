package retention

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/qbitprune/qbittorrent"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTorrent builds a completed torrent that has seeded since completion.
func newTorrent(hash, category string, seedDays, inactiveDays, ratio float64) *qbittorrent.TorrentInfo {
	return &qbittorrent.TorrentInfo{
		Hash:         hash,
		Name:         "torrent-" + hash,
		Category:     category,
		TrackerHost:  "tracker.example.org",
		Size:         1 << 30,
		Ratio:        ratio,
		SeedingTime:  Days(seedDays),
		CompletionOn: testNow.Add(-Days(seedDays)),
		LastActivity: testNow.Add(-Days(inactiveDays)),
	}
}

func moviesRule() Rule {
	return Rule{
		Kind:        SelectCategory,
		Values:      []string{"movies"},
		MinSeedTime: Days(14),
		MaxSeedTime: Days(30),
		MinInactive: Days(7),
		MaxInactive: Days(14),
		StopAtRatio: true,
	}
}

type rejectAll struct{}

func (rejectAll) Match(*qbittorrent.TorrentInfo, time.Time) bool { return false }

func TestThresholds(t *testing.T) {
	th := moviesRule().Thresholds(DefaultLeeway)

	assert.Equal(t, scale(Days(14), 1.15), th.MinTime)
	assert.Equal(t, Days(30), th.MaxTime)
	assert.Equal(t, scale(Days(7), 1.15), th.MinInactive)
	assert.Equal(t, Days(14), th.MaxInactive)

	// A maximum below the scaled minimum is raised to it.
	rule := Rule{MinSeedTime: Days(10), MaxSeedTime: Days(5)}
	assert.Equal(t, scale(Days(10), 1.15), rule.Thresholds(1.15).MaxTime)
}

func TestDays_Saturates(t *testing.T) {
	assert.Equal(t, time.Duration(math.MaxInt64), Days(999999))
	assert.Equal(t, time.Duration(math.MaxInt64), Days(math.Inf(1)))
	assert.Equal(t, time.Duration(math.MaxInt64), scale(math.MaxInt64, DefaultLeeway))
	assert.Equal(t, 24*time.Hour, Days(1))
	assert.Positive(t, Days(106_000))
}

func TestClassify_HugeMaximumsNeverForceRemove(t *testing.T) {
	rule := Rule{
		Kind:        SelectCategory,
		Values:      []string{"movies"},
		MinSeedTime: Days(14),
		MaxSeedTime: Days(999999),
		MinInactive: Days(7),
		MaxInactive: Days(999999),
	}

	th := rule.Thresholds(DefaultLeeway)
	assert.Equal(t, time.Duration(math.MaxInt64), th.MaxTime)
	assert.Equal(t, time.Duration(math.MaxInt64), th.MaxInactive)

	torrent := newTorrent("a", "movies", 20, 1, 0.5)
	c := Classify([]*qbittorrent.TorrentInfo{torrent}, []Rule{rule}, testNow, DefaultLeeway)

	assert.Empty(t, c.MustRemove)
	assert.Empty(t, c.CanRemove)
	require.Len(t, c.Unclaimed, 1)
	assert.Equal(t, "a", c.Unclaimed[0].Torrent.Hash)
}

func TestClassify_Verdicts(t *testing.T) {
	tests := []struct {
		name    string
		torrent *qbittorrent.TorrentInfo
		want    Verdict
	}{
		{
			name:    "seed time past max",
			torrent: newTorrent("a", "movies", 40, 0, 0),
			want:    MustRemove,
		},
		{
			name:    "past min time and inactive past max",
			torrent: newTorrent("b", "movies", 20, 15, 0),
			want:    MustRemove,
		},
		{
			name:    "past min time and inactive past min",
			torrent: newTorrent("c", "movies", 20, 9, 0),
			want:    CanRemove,
		},
		{
			name:    "ratio reached before min time",
			torrent: newTorrent("d", "movies", 5, 10, 1.2),
			want:    CanRemove,
		},
		{
			name:    "ratio within leeway does not count",
			torrent: newTorrent("e", "movies", 5, 10, 1.1),
			want:    Unclaimed,
		},
		{
			name:    "short seed time, long inactivity, low ratio",
			torrent: newTorrent("f", "movies", 10, 20, 0.5),
			want:    Unclaimed,
		},
		{
			name:    "past min time but still active",
			torrent: newTorrent("g", "movies", 20, 1, 3),
			want:    Unclaimed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify([]*qbittorrent.TorrentInfo{tt.torrent}, []Rule{moviesRule()}, testNow, DefaultLeeway)

			assert.True(t, c.IsProcessed(tt.torrent.Hash))
			switch tt.want {
			case MustRemove:
				require.Len(t, c.MustRemove, 1)
				assert.Equal(t, MustRemove, c.MustRemove[0].Verdict)
			case CanRemove:
				require.Len(t, c.CanRemove, 1)
				assert.Equal(t, CanRemove, c.CanRemove[0].Verdict)
			default:
				require.Len(t, c.Unclaimed, 1)
				assert.Empty(t, c.MustRemove)
				assert.Empty(t, c.CanRemove)
			}
		})
	}
}

func TestClassify_ActualTimeUsesCompletion(t *testing.T) {
	// Seeding time survives re-adding a torrent; time since completion caps it.
	torrent := newTorrent("a", "movies", 40, 0, 0)
	torrent.CompletionOn = testNow.Add(-Days(2))

	c := Classify([]*qbittorrent.TorrentInfo{torrent}, []Rule{moviesRule()}, testNow, DefaultLeeway)
	assert.Empty(t, c.MustRemove)
	assert.Len(t, c.Unclaimed, 1)
}

func TestClassify_FirstMatchingRuleWins(t *testing.T) {
	torrent := newTorrent("a", "movies", 10, 20, 0.5)

	tracker := Rule{
		Kind:   SelectTracker,
		Values: []string{"tracker.example.org"},
	}

	// The tracker rule is listed first but category rules always run first.
	c := Classify([]*qbittorrent.TorrentInfo{torrent}, []Rule{tracker, moviesRule()}, testNow, DefaultLeeway)

	assert.Empty(t, c.MustRemove, "the tracker rule must not re-examine a claimed torrent")
	require.Len(t, c.Unclaimed, 1)
	assert.Equal(t, "category movies", c.Unclaimed[0].Rule)

	require.Len(t, c.Stats, 2)
	assert.Equal(t, RuleStat{Rule: "category movies", Count: 1, Size: 1 << 30}, c.Stats[0])
	assert.Equal(t, RuleStat{Rule: "tracker tracker.example.org"}, c.Stats[1])
}

func TestClassify_TrackerRule(t *testing.T) {
	other := newTorrent("a", "", 40, 0, 0)
	other.TrackerHost = "other.org"
	matched := newTorrent("b", "", 40, 0, 0)

	rule := Rule{
		Kind:        SelectTracker,
		Values:      []string{"x.org", "tracker.example.org"},
		MaxSeedTime: Days(30),
	}

	c := Classify([]*qbittorrent.TorrentInfo{other, matched}, []Rule{rule}, testNow, DefaultLeeway)

	require.Len(t, c.MustRemove, 1)
	assert.Equal(t, "b", c.MustRemove[0].Torrent.Hash)
	assert.False(t, c.IsProcessed("a"))
	assert.Equal(t, []*qbittorrent.TorrentInfo{other}, c.Unhandled([]*qbittorrent.TorrentInfo{other, matched}))
}

func TestClassify_FilterNarrowsSelection(t *testing.T) {
	torrent := newTorrent("a", "movies", 40, 0, 0)
	rule := moviesRule()
	rule.Filter = rejectAll{}

	c := Classify([]*qbittorrent.TorrentInfo{torrent}, []Rule{rule}, testNow, DefaultLeeway)

	assert.Empty(t, c.MustRemove)
	assert.False(t, c.IsProcessed("a"), "filtered torrents stay available to later rules")
}

func TestClassify_DisjointAndDeterministic(t *testing.T) {
	var torrents []*qbittorrent.TorrentInfo
	for i, seed := range []float64{0, 3, 8, 15, 17, 22, 29, 31, 45} {
		for j, inactive := range []float64{0, 5, 9, 13, 16, 30} {
			h := string(rune('a'+i)) + string(rune('a'+j))
			torrents = append(torrents, newTorrent(h, "movies", seed, inactive, float64(j)/2))
		}
	}

	first := Classify(torrents, []Rule{moviesRule()}, testNow, DefaultLeeway)
	second := Classify(torrents, []Rule{moviesRule()}, testNow, DefaultLeeway)
	assert.Equal(t, first, second)

	seen := make(map[string]Verdict)
	for _, bucket := range [][]Decision{first.MustRemove, first.CanRemove, first.Unclaimed} {
		for _, d := range bucket {
			_, dup := seen[d.Torrent.Hash]
			require.False(t, dup, "hash %s in more than one bucket", d.Torrent.Hash)
			seen[d.Torrent.Hash] = d.Verdict
		}
	}
	assert.Len(t, seen, len(torrents))
	assert.Len(t, first.Processed, len(torrents))
}

func TestClassify_MonotonicPastMax(t *testing.T) {
	for _, seed := range []float64{30, 31, 60, 365} {
		for _, inactive := range []float64{0, 14, 100} {
			torrent := newTorrent("a", "movies", seed, inactive, 0)
			c := Classify([]*qbittorrent.TorrentInfo{torrent}, []Rule{moviesRule()}, testNow, DefaultLeeway)
			assert.Len(t, c.MustRemove, 1, "seed=%v inactive=%v", seed, inactive)
		}
	}

	for _, inactive := range []float64{14, 20, 365} {
		torrent := newTorrent("a", "movies", 17, inactive, 0)
		c := Classify([]*qbittorrent.TorrentInfo{torrent}, []Rule{moviesRule()}, testNow, DefaultLeeway)
		assert.Len(t, c.MustRemove, 1, "inactive=%v", inactive)
	}
}

func TestClassify_BucketsRankedByValue(t *testing.T) {
	high := newTorrent("high", "movies", 40, 0, 5)
	low := newTorrent("low", "movies", 40, 10, 0)
	mid := newTorrent("mid", "movies", 40, 0, 1)

	c := Classify([]*qbittorrent.TorrentInfo{high, low, mid}, []Rule{moviesRule()}, testNow, DefaultLeeway)

	require.Len(t, c.MustRemove, 3)
	assert.Equal(t, "low", c.MustRemove[0].Torrent.Hash)
	assert.Equal(t, "mid", c.MustRemove[1].Torrent.Hash)
	assert.Equal(t, "high", c.MustRemove[2].Torrent.Hash)
}

func TestClassify_SkipsIncomplete(t *testing.T) {
	downloading := newTorrent("a", "movies", 0, 10, 2.5)
	downloading.CompletionOn = time.Time{}
	done := newTorrent("b", "movies", 40, 0, 0)

	torrents := []*qbittorrent.TorrentInfo{downloading, done}
	c := Classify(torrents, []Rule{moviesRule()}, testNow, DefaultLeeway)

	assert.Empty(t, c.CanRemove)
	require.Len(t, c.MustRemove, 1)
	assert.Equal(t, "b", c.MustRemove[0].Torrent.Hash)
	assert.False(t, c.IsProcessed("a"))
	assert.Empty(t, c.Unhandled(torrents))
}
