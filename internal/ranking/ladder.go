// Package ranking implements the rankings computation engine: carry-up
// resolution, best-of-N aggregation, and total ordering with a multi-level
// tie-break chain. The whole pipeline is a pure function of an immutable
// result snapshot; re-running it on the same snapshot reproduces identical
// output, including rank values.
package ranking

import (
	"github.com/rotisserie/eris"
)

// Ladder is the explicit ordering of age brackets within an event family,
// youngest first. Carry-up direction is resolved by ladder position, never
// by comparing bracket strings.
type Ladder struct {
	ages  []string
	index map[string]int
}

// NewLadder builds a Ladder from an ordered bracket list.
func NewLadder(ages []string) (*Ladder, error) {
	if len(ages) == 0 {
		return nil, eris.New("ranking: age ladder is empty")
	}
	index := make(map[string]int, len(ages))
	for i, age := range ages {
		if _, dup := index[age]; dup {
			return nil, eris.Errorf("ranking: duplicate age bracket %s in ladder", age)
		}
		index[age] = i
	}
	return &Ladder{ages: ages, index: index}, nil
}

// LowerAges returns every bracket strictly below age, youngest first.
// An age absent from the ladder is a configuration error: such an event
// cannot participate in carry-up and its family's computation must be
// surfaced to the operator rather than silently skipped.
func (l *Ladder) LowerAges(age string) ([]string, error) {
	pos, ok := l.index[age]
	if !ok {
		return nil, eris.Errorf("ranking: age bracket %s is not in the configured ladder %v", age, l.ages)
	}
	return l.ages[:pos], nil
}

// Contains reports whether age is a known bracket.
func (l *Ladder) Contains(age string) bool {
	_, ok := l.index[age]
	return ok
}
