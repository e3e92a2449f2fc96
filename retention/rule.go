package retention

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/s0up4200/qbitprune/qbittorrent"
)

// Day is the unit retention thresholds are configured in.
const Day = 24 * time.Hour

// DefaultLeeway is multiplied onto minimum thresholds before evaluation.
const DefaultLeeway = 1.15

// SelectorKind decides which torrent attribute a rule matches on
type SelectorKind int

const (
	SelectCategory SelectorKind = iota
	SelectTracker
)

func (k SelectorKind) String() string {
	switch k {
	case SelectCategory:
		return "category"
	case SelectTracker:
		return "tracker"
	default:
		return fmt.Sprintf("selector(%d)", int(k))
	}
}

// Matcher further narrows the torrents a rule selects
type Matcher interface {
	Match(torrent *qbittorrent.TorrentInfo, now time.Time) bool
}

// Rule is a retention policy for a category or a set of trackers
type Rule struct {
	Kind   SelectorKind
	Values []string

	MinSeedTime time.Duration
	MaxSeedTime time.Duration
	MinInactive time.Duration
	MaxInactive time.Duration

	// StopAtRatio lets a torrent become removable before MinSeedTime once
	// its ratio reaches 1.0 (after leeway).
	StopAtRatio bool

	// Filter is optional.
	Filter Matcher
}

// Name identifies the rule in logs and reports
func (r Rule) Name() string {
	return fmt.Sprintf("%s %s", r.Kind, strings.Join(r.Values, ","))
}

// Selects reports whether the torrent falls under this rule
func (r Rule) Selects(torrent *qbittorrent.TorrentInfo, now time.Time) bool {
	var key string
	switch r.Kind {
	case SelectCategory:
		key = torrent.Category
	case SelectTracker:
		key = torrent.TrackerHost
	default:
		return false
	}

	if !slices.Contains(r.Values, key) {
		return false
	}

	return r.Filter == nil || r.Filter.Match(torrent, now)
}

// Thresholds are a rule's limits after leeway has been applied
type Thresholds struct {
	MinTime     time.Duration
	MaxTime     time.Duration
	MinInactive time.Duration
	MaxInactive time.Duration
}

// Thresholds applies the leeway multiplier to the minimums. Maximums never
// drop below their minimum.
func (r Rule) Thresholds(leeway float64) Thresholds {
	minTime := scale(r.MinSeedTime, leeway)
	minInactive := scale(r.MinInactive, leeway)

	return Thresholds{
		MinTime:     minTime,
		MaxTime:     max(r.MaxSeedTime, minTime),
		MinInactive: minInactive,
		MaxInactive: max(r.MaxInactive, minInactive),
	}
}

func scale(d time.Duration, factor float64) time.Duration {
	return saturate(float64(d) * factor)
}

// Days converts a day count from configuration into a duration. Counts beyond
// the range of time.Duration saturate at the largest duration.
func Days(days float64) time.Duration {
	return saturate(days * float64(Day))
}

func saturate(ns float64) time.Duration {
	switch {
	case math.IsNaN(ns):
		return 0
	case ns >= math.MaxInt64:
		return math.MaxInt64
	case ns <= math.MinInt64:
		return math.MinInt64
	}
	return time.Duration(ns)
}

// orderRules returns category rules followed by tracker rules, each group
// keeping its configured order.
func orderRules(rules []Rule) []Rule {
	ordered := slices.Clone(rules)
	slices.SortStableFunc(ordered, func(a, b Rule) int {
		return int(a.Kind) - int(b.Kind)
	})
	return ordered
}
