package ranking

import (
	"sort"

	"github.com/shuttleworks/rankings-cli/internal/model"
)

// Pool is one player's CandidatePool for a target event: every result
// eligible to count toward that event's ranking.
type Pool struct {
	PlayerID  int64
	FirstName string
	LastName  string
	Results   []model.Result
}

// ResolvePools builds the CandidatePool of every eligible player for the
// target event. Eligibility requires at least one result directly at the
// target event; carry-up is not automatic promotion. An eligible player's
// pool is their target-event results plus their results at every strictly
// lower bracket of the same family. Players with no direct result are
// excluded entirely; that is normal filtering, not an error.
//
// The input may span multiple families and ages; anything outside the
// target family is ignored. Results whose event name cannot be parsed are
// ignored too: they were validated at ingestion, so an unparsable code
// here means the row never belonged to a ranked event.
func ResolvePools(results []model.Result, target model.Event, ladder *Ladder) ([]Pool, error) {
	lower, err := ladder.LowerAges(target.Age)
	if err != nil {
		return nil, err
	}
	lowerSet := make(map[string]bool, len(lower))
	for _, age := range lower {
		lowerSet[age] = true
	}

	family := target.Family()

	own := make(map[int64][]model.Result)
	carried := make(map[int64][]model.Result)
	for _, r := range results {
		ev, err := model.ParseEventCode(r.EventCode)
		if err != nil || ev.Family() != family {
			continue
		}
		switch {
		case ev.Code == target.Code:
			own[r.PlayerID] = append(own[r.PlayerID], r)
		case lowerSet[ev.Age]:
			carried[r.PlayerID] = append(carried[r.PlayerID], r)
		}
	}

	pools := make([]Pool, 0, len(own))
	for pid, direct := range own {
		pool := Pool{
			PlayerID:  pid,
			FirstName: direct[0].FirstName,
			LastName:  direct[0].LastName,
			Results:   append(direct, carried[pid]...),
		}
		pools = append(pools, pool)
	}

	// Deterministic order for the aggregation stage.
	sort.Slice(pools, func(i, j int) bool { return pools[i].PlayerID < pools[j].PlayerID })
	return pools, nil
}
