package retention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/qbitprune/qbittorrent"
)

const gib = int64(1) << 30

func candidates(sizes ...int64) []Decision {
	out := make([]Decision, len(sizes))
	for i, size := range sizes {
		out[i] = Decision{
			Torrent: &qbittorrent.TorrentInfo{Hash: string(rune('a' + i)), Size: size},
			Verdict: CanRemove,
		}
	}
	return out
}

func TestPlanEviction(t *testing.T) {
	tests := []struct {
		name         string
		sizes        []int64
		free         int64
		required     int64
		mustRemove   int64
		wantSelected int
		wantDeficit  int64
		wantAccum    int64
		wantRemain   int64
	}{
		{
			name:         "overshoots by the last torrent",
			sizes:        []int64{20 * gib, 20 * gib, 20 * gib},
			free:         100 * gib,
			required:     150 * gib,
			wantSelected: 3,
			wantDeficit:  50 * gib,
			wantAccum:    60 * gib,
		},
		{
			name:         "stops on exact match",
			sizes:        []int64{20 * gib, 30 * gib, 40 * gib},
			free:         100 * gib,
			required:     150 * gib,
			wantSelected: 2,
			wantDeficit:  50 * gib,
			wantAccum:    50 * gib,
		},
		{
			name:         "must-remove torrents cover the target",
			sizes:        []int64{20 * gib},
			free:         100 * gib,
			required:     150 * gib,
			mustRemove:   50 * gib,
			wantSelected: 0,
		},
		{
			name:         "already above target",
			sizes:        []int64{20 * gib},
			free:         400 * gib,
			required:     300 * gib,
			wantSelected: 0,
		},
		{
			name:         "candidates exhausted",
			sizes:        []int64{20 * gib, 20 * gib},
			free:         100 * gib,
			required:     200 * gib,
			mustRemove:   10 * gib,
			wantSelected: 2,
			wantDeficit:  90 * gib,
			wantAccum:    40 * gib,
			wantRemain:   50 * gib,
		},
		{
			name:        "no candidates",
			free:        0,
			required:    10 * gib,
			wantDeficit: 10 * gib,
			wantRemain:  10 * gib,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanEviction(candidates(tt.sizes...), tt.free, tt.required, tt.mustRemove)

			assert.Len(t, plan.Selected, tt.wantSelected)
			assert.Equal(t, tt.wantDeficit, plan.Deficit)
			assert.Equal(t, tt.wantAccum, plan.Accumulated)
			assert.Equal(t, tt.wantRemain, plan.Remaining)
			assert.Equal(t, tt.wantRemain == 0, plan.Satisfied())
		})
	}
}

func TestPlanEviction_KeepsRankOrder(t *testing.T) {
	cands := candidates(5*gib, 1*gib, 10*gib, 7*gib)

	plan := PlanEviction(cands, 0, 12*gib, 0)

	require.Len(t, plan.Selected, 3)
	for i := range plan.Selected {
		assert.Equal(t, cands[i].Torrent.Hash, plan.Selected[i].Torrent.Hash)
	}
}

func TestPlanEviction_MinimalPrefix(t *testing.T) {
	sizes := []int64{3, 1, 4, 1, 5, 9, 2, 6}

	for deficit := int64(1); deficit <= 31; deficit++ {
		plan := PlanEviction(candidates(sizes...), 0, deficit, 0)

		var running int64
		for i, d := range plan.Selected {
			assert.GreaterOrEqual(t, d.Torrent.Size, int64(0))
			running += d.Torrent.Size
			if i < len(plan.Selected)-1 {
				assert.Less(t, running, deficit, "stopped late at deficit %d", deficit)
			}
		}
		assert.Equal(t, running, plan.Accumulated)
		assert.GreaterOrEqual(t, plan.Accumulated, deficit, "undershoot at deficit %d", deficit)
	}
}
