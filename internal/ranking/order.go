package ranking

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/shuttleworks/rankings-cli/internal/model"
)

// compareFn returns a negative value when a should rank ahead of b.
type compareFn func(a, b *model.RankingEntry) int

// Orderer imposes the total order of a ranking. The tie-break chain is an
// explicit ordered list so further levels can be appended without touching
// the comparison logic:
//
//  1. higher TotalPoints
//  2. lexicographically greater Top4Vector (missing slots lose)
//  3. higher CountedTournaments
//  4. LastName then FirstName, ascending, case-insensitive
//  5. lower PlayerID
//
// The PlayerID fallback guarantees a strict total order even for two
// players identical across every meaningful key.
//
// An Orderer is not safe for concurrent use: the underlying collator
// carries mutable state. Create one per goroutine.
type Orderer struct {
	col   *collate.Collator
	chain []compareFn
}

// NewOrderer builds an Orderer with a case-insensitive name collator.
func NewOrderer() *Orderer {
	o := &Orderer{col: collate.New(language.Und, collate.IgnoreCase)}
	o.chain = []compareFn{
		func(a, b *model.RankingEntry) int { return descFloat(a.TotalPoints, b.TotalPoints) },
		func(a, b *model.RankingEntry) int { return descVector(a.Top4Vector, b.Top4Vector) },
		func(a, b *model.RankingEntry) int { return b.CountedTournaments - a.CountedTournaments },
		func(a, b *model.RankingEntry) int { return o.col.CompareString(a.LastName, b.LastName) },
		func(a, b *model.RankingEntry) int { return o.col.CompareString(a.FirstName, b.FirstName) },
		func(a, b *model.RankingEntry) int { return ascInt64(a.PlayerID, b.PlayerID) },
	}
	return o
}

// Compare returns a negative value when a ranks ahead of b.
func (o *Orderer) Compare(a, b *model.RankingEntry) int {
	for _, cmp := range o.chain {
		if c := cmp(a, b); c != 0 {
			return c
		}
	}
	return 0
}

// Sort orders entries best first and assigns Rank 1..N.
func (o *Orderer) Sort(entries []model.RankingEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return o.Compare(&entries[i], &entries[j]) < 0
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

func descFloat(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

func ascInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// descVector compares element-wise, greater vector first. A shorter vector
// with a matching prefix loses: a missing slot compares below any real
// points value, so a four-result player beats an otherwise-equal
// three-result one.
func descVector(a, b []float64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(a):
			return 1
		case i >= len(b):
			return -1
		}
		if c := descFloat(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}
