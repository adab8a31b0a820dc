package ranking

import (
	"sort"
	"time"

	"github.com/shuttleworks/rankings-cli/internal/model"
)

// Aggregate summarizes the scored subset of one candidate pool.
type Aggregate struct {
	TotalPoints        float64
	Top4Vector         []float64
	CountedTournaments int
	MostRecentDate     time.Time
}

// AggregatePool selects the best bestOf results from a non-empty pool.
//
// Selection order is points descending, then the more recent tournament
// end date, then tournament name ascending, so that which of several
// equal-point results gets counted is deterministic. MostRecentDate is the
// latest end date across the ENTIRE pool, not just the selected subset:
// it is an activity signal, independent of which results scored.
func AggregatePool(pool []model.Result, bestOf int) Aggregate {
	selected := SelectTop(pool, bestOf)

	agg := Aggregate{
		Top4Vector:         make([]float64, 0, len(selected)),
		CountedTournaments: len(selected),
	}
	for _, r := range selected {
		agg.TotalPoints += r.PositionPoints
		agg.Top4Vector = append(agg.Top4Vector, r.PositionPoints)
	}
	for _, r := range pool {
		if r.TournamentEndDate.After(agg.MostRecentDate) {
			agg.MostRecentDate = r.TournamentEndDate
		}
	}
	return agg
}

// SelectTop returns the scored subset of a pool in selection order. The
// input is left untouched.
func SelectTop(pool []model.Result, bestOf int) []model.Result {
	selected := make([]model.Result, len(pool))
	copy(selected, pool)
	sort.Slice(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.PositionPoints != b.PositionPoints {
			return a.PositionPoints > b.PositionPoints
		}
		if !a.TournamentEndDate.Equal(b.TournamentEndDate) {
			return a.TournamentEndDate.After(b.TournamentEndDate)
		}
		return a.TournamentName < b.TournamentName
	})
	if len(selected) > bestOf {
		selected = selected[:bestOf]
	}
	return selected
}
