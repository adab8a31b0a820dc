package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuttleworks/rankings-cli/internal/config"
	"github.com/shuttleworks/rankings-cli/internal/model"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(config.RankingConfig{
		BestOf:    4,
		AgeLadder: []string{"U11", "U13", "U15", "U17", "U19"},
	})
	require.NoError(t, err)
	return e
}

func named(pid int64, first, last, event, tournament string, points float64) model.Result {
	r := result(pid, event, tournament, points)
	r.FirstName = first
	r.LastName = last
	return r
}

// snapshot mirrors the worked scenarios: A has five U17 results, B carries
// up two U15 results behind one direct U17 result, C has only U15 results
// and must not appear in the U17 ranking.
func scenarioSnapshot() []model.Result {
	return []model.Result{
		named(1, "Alice", "Anders", "BS U17", "T1", 10),
		named(1, "Alice", "Anders", "BS U17", "T2", 10),
		named(1, "Alice", "Anders", "BS U17", "T3", 8),
		named(1, "Alice", "Anders", "BS U17", "T4", 6),
		named(1, "Alice", "Anders", "BS U17", "T5", 4),

		named(2, "Ben", "Brown", "BS U17", "Spring Open", 5),
		named(2, "Ben", "Brown", "BS U15", "Winter Open", 9),
		named(2, "Ben", "Brown", "BS U15", "Autumn Open", 7),

		named(3, "Cody", "Clark", "BS U15", "Winter Open", 20),
	}
}

func TestComputeEvent_Scenarios(t *testing.T) {
	e := testEngine(t)
	entries, err := e.ComputeEvent(scenarioSnapshot(), target(t, "BS U17"))
	require.NoError(t, err)

	// C is excluded: only A and B are ranked.
	require.Len(t, entries, 2)

	first, second := entries[0], entries[1]
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, int64(1), first.PlayerID)
	assert.Equal(t, 34.0, first.TotalPoints)
	assert.Equal(t, []float64{10, 10, 8, 6}, first.Top4Vector)
	assert.Equal(t, 4, first.CountedTournaments)

	assert.Equal(t, 2, second.Rank)
	assert.Equal(t, int64(2), second.PlayerID)
	assert.Equal(t, 21.0, second.TotalPoints)
	assert.Equal(t, []float64{9, 7, 5}, second.Top4Vector)
	assert.Equal(t, 3, second.CountedTournaments)
}

func TestComputeEvent_RanksAreDense(t *testing.T) {
	e := testEngine(t)

	var results []model.Result
	for pid := int64(1); pid <= 25; pid++ {
		results = append(results, named(pid, "P", "Q", "GD U13", "Open", float64(pid%7)))
	}

	entries, err := e.ComputeEvent(results, target(t, "GD U13"))
	require.NoError(t, err)
	require.Len(t, entries, 25)

	seen := make(map[int]bool)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
		assert.False(t, seen[e.Rank])
		seen[e.Rank] = true
	}
}

func TestComputeAll_CoversEveryEventAndIsIdempotent(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	snapshot := scenarioSnapshot()

	first, err := e.ComputeAll(ctx, snapshot)
	require.NoError(t, err)
	assert.Len(t, first, 2) // BS U17 and BS U15

	u15 := first["BS U15"]
	require.Len(t, u15, 2) // B and C both played U15 directly
	assert.Equal(t, int64(3), u15[0].PlayerID)

	second, err := e.ComputeAll(ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeAll_UnknownAgeFailsThatEventOnly(t *testing.T) {
	e, err := New(config.RankingConfig{BestOf: 4, AgeLadder: []string{"U15", "U17"}})
	require.NoError(t, err)

	snapshot := []model.Result{
		result(1, "BS U17", "Open", 10),
		result(2, "BS U21", "Open", 10), // bracket missing from the ladder
	}

	rankings, err := e.ComputeAll(context.Background(), snapshot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "U21")
	require.Contains(t, rankings, "BS U17")
	assert.NotContains(t, rankings, "BS U21")
}

func TestCountedWindow(t *testing.T) {
	e := testEngine(t)
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	snapshot := scenarioSnapshot()
	for i := range snapshot {
		snapshot[i].TournamentEndDate = jan
	}

	window, err := e.CountedWindow(snapshot, target(t, "BS U17"), 1)
	require.NoError(t, err)
	assert.Len(t, window, 4)
	assert.True(t, window[WindowKey("BS U17", "T1")])
	assert.False(t, window[WindowKey("BS U17", "T5")])

	// B's window includes carried-up U15 results.
	window, err = e.CountedWindow(snapshot, target(t, "BS U17"), 2)
	require.NoError(t, err)
	assert.True(t, window[WindowKey("BS U15", "Winter Open")])
	assert.True(t, window[WindowKey("BS U17", "Spring Open")])

	// C has no pool for U17 at all.
	window, err = e.CountedWindow(snapshot, target(t, "BS U17"), 3)
	require.NoError(t, err)
	assert.Empty(t, window)
}
