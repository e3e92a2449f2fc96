package retention

import (
	"time"

	"github.com/s0up4200/qbitprune/qbittorrent"
)

// Verdict is the outcome of evaluating a torrent against the rule that claimed it
type Verdict int

const (
	// Unclaimed torrents matched a rule but satisfied none of its thresholds.
	Unclaimed Verdict = iota
	CanRemove
	MustRemove
)

func (v Verdict) String() string {
	switch v {
	case MustRemove:
		return "must-remove"
	case CanRemove:
		return "can-remove"
	default:
		return "unclaimed"
	}
}

// Decision records how a single torrent was classified
type Decision struct {
	Torrent *qbittorrent.TorrentInfo
	Verdict Verdict
	Rule    string
	Value   float64
	Score   float64
}

// RuleStat counts the torrents a rule claimed
type RuleStat struct {
	Rule  string
	Count int
	Size  int64
}

// Classification is the result of evaluating all rules against a snapshot
type Classification struct {
	MustRemove []Decision
	CanRemove  []Decision
	Unclaimed  []Decision

	// Processed holds every hash claimed by a rule, whatever its verdict.
	Processed map[string]struct{}

	Stats []RuleStat
}

// IsProcessed reports whether a rule claimed the hash
func (c *Classification) IsProcessed(hash string) bool {
	_, ok := c.Processed[hash]
	return ok
}

// Unhandled returns the completed torrents no rule claimed
func (c *Classification) Unhandled(torrents []*qbittorrent.TorrentInfo) []*qbittorrent.TorrentInfo {
	var out []*qbittorrent.TorrentInfo
	for _, t := range torrents {
		if t.IsComplete() && !c.IsProcessed(t.Hash) {
			out = append(out, t)
		}
	}
	return out
}

// Classify evaluates rules in order (category rules, then tracker rules) and
// buckets each completed torrent by the first rule that selects it. Torrents
// still downloading are never claimed. Both removal buckets are returned
// ranked by ascending value.
func Classify(torrents []*qbittorrent.TorrentInfo, rules []Rule, now time.Time, leeway float64) *Classification {
	c := &Classification{
		Processed: make(map[string]struct{}, len(torrents)),
	}

	for _, rule := range orderRules(rules) {
		th := rule.Thresholds(leeway)
		stat := RuleStat{Rule: rule.Name()}

		for _, torrent := range torrents {
			if !torrent.IsComplete() || c.IsProcessed(torrent.Hash) || !rule.Selects(torrent, now) {
				continue
			}

			stat.Count++
			stat.Size += torrent.Size

			decision := Decision{
				Torrent: torrent,
				Verdict: evaluate(torrent, th, rule.StopAtRatio, leeway, now),
				Rule:    stat.Rule,
				Value:   Value(torrent, now),
				Score:   Score(torrent, now),
			}

			switch decision.Verdict {
			case MustRemove:
				c.MustRemove = append(c.MustRemove, decision)
			case CanRemove:
				c.CanRemove = append(c.CanRemove, decision)
			default:
				c.Unclaimed = append(c.Unclaimed, decision)
			}

			c.Processed[torrent.Hash] = struct{}{}
		}

		c.Stats = append(c.Stats, stat)
	}

	Rank(c.MustRemove)
	Rank(c.CanRemove)

	return c
}

func evaluate(torrent *qbittorrent.TorrentInfo, th Thresholds, stopAtRatio bool, leeway float64, now time.Time) Verdict {
	actualTime := min(torrent.SeedingTime, now.Sub(torrent.CompletionOn))
	actualInactive := now.Sub(torrent.LastActivity)

	var ratioGate float64
	if stopAtRatio {
		ratioGate = torrent.Ratio / leeway
	}

	if actualTime >= th.MaxTime || (actualTime >= th.MinTime && actualInactive >= th.MaxInactive) {
		return MustRemove
	}

	if actualInactive >= th.MinInactive && (actualTime >= th.MinTime || ratioGate >= 1.0) {
		return CanRemove
	}

	return Unclaimed
}

// TotalSize sums the torrent sizes of the decisions
func TotalSize(decisions []Decision) int64 {
	var total int64
	for _, d := range decisions {
		total += d.Torrent.Size
	}
	return total
}
