package aggregate

import (
	"sort"

	"expresso/internal/core"
	"expresso/internal/store"
)

// GoalView is a goal with its derived saved amount.
type GoalView struct {
	Goal      core.Goal
	Saved     core.Money
	Remaining core.Money
	Percent   float64
}

func (v GoalView) Reached() bool {
	return v.Goal.Target.IsPositive() && v.Saved.Cmp(v.Goal.Target) >= 0
}

// Progress returns saved/target as a percentage in [0, 100]. A target that
// is not positive yields 0.
func Progress(saved, target core.Money) float64 {
	if !target.IsPositive() || !saved.IsPositive() {
		return 0
	}
	if saved.Cmp(target) >= 0 {
		return 100
	}
	return float64(saved.Cents) / float64(target.Cents) * 100
}

// Goals lists every goal with progress read from its vault, closest to
// completion first.
func Goals(snap *store.Snapshot) []GoalView {
	goals := snap.Goals()
	out := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		saved := snap.SavedAmount(g)
		remaining := g.Target.Sub(saved)
		if remaining.IsNegative() {
			remaining = core.Money{}
		}
		out = append(out, GoalView{
			Goal:      g,
			Saved:     saved,
			Remaining: remaining,
			Percent:   Progress(saved, g.Target),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		return out[i].Goal.ID < out[j].Goal.ID
	})
	return out
}
