package retention

// Plan is the set of removable torrents chosen to cover a free-space deficit
type Plan struct {
	Selected    []Decision
	Deficit     int64
	Accumulated int64
	// Remaining is the part of Deficit the candidates could not cover.
	Remaining int64
}

// Satisfied reports whether the plan covers the whole deficit
func (p Plan) Satisfied() bool {
	return p.Remaining <= 0
}

// PlanEviction walks candidates in the given (ascending value) order and
// selects the shortest prefix whose size reaches the deficit left after
// freeSpace and the must-remove torrents are accounted for. The last torrent
// taken may overshoot the deficit.
func PlanEviction(candidates []Decision, freeSpace, requiredSpace, mustRemoveSize int64) Plan {
	plan := Plan{Deficit: requiredSpace - freeSpace - mustRemoveSize}
	if plan.Deficit <= 0 {
		plan.Deficit = 0
		return plan
	}

	for _, c := range candidates {
		plan.Selected = append(plan.Selected, c)
		plan.Accumulated += max(c.Torrent.Size, 0)
		if plan.Accumulated >= plan.Deficit {
			return plan
		}
	}

	plan.Remaining = plan.Deficit - plan.Accumulated
	return plan
}
