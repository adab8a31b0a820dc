package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuttleworks/rankings-cli/internal/model"
)

func testLadder(t *testing.T) *Ladder {
	t.Helper()
	l, err := NewLadder([]string{"U11", "U13", "U15", "U17", "U19"})
	require.NoError(t, err)
	return l
}

func result(pid int64, event, tournament string, points float64) model.Result {
	return model.Result{
		PlayerID:       pid,
		EventCode:      event,
		TournamentName: tournament,
		PositionPoints: points,
		FirstName:      "First",
		LastName:       "Last",
	}
}

func target(t *testing.T, code string) model.Event {
	t.Helper()
	ev, err := model.ParseEventCode(code)
	require.NoError(t, err)
	return ev
}

func TestResolvePools_CarryUpNeedsDirectResult(t *testing.T) {
	results := []model.Result{
		// Player 2 has one direct U17 result plus two U15 ones.
		result(2, "BS U17", "Spring Open", 5),
		result(2, "BS U15", "Winter Open", 9),
		result(2, "BS U15", "Autumn Open", 7),
		// Player 3 only played U15: not eligible for the U17 ranking.
		result(3, "BS U15", "Winter Open", 20),
	}

	pools, err := ResolvePools(results, target(t, "BS U17"), testLadder(t))
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, int64(2), pools[0].PlayerID)

	var points []float64
	for _, r := range pools[0].Results {
		points = append(points, r.PositionPoints)
	}
	assert.ElementsMatch(t, []float64{5, 9, 7}, points)
}

func TestResolvePools_AllLowerBracketsCount(t *testing.T) {
	results := []model.Result{
		result(1, "GS U19", "Nationals", 3),
		result(1, "GS U15", "Regionals", 8),
		result(1, "GS U11", "Club Cup", 6),
	}

	pools, err := ResolvePools(results, target(t, "GS U19"), testLadder(t))
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Len(t, pools[0].Results, 3)
}

func TestResolvePools_NeverPullsHigherAges(t *testing.T) {
	results := []model.Result{
		result(1, "BS U15", "Spring Open", 5),
		result(1, "BS U17", "Nationals", 30),
	}

	pools, err := ResolvePools(results, target(t, "BS U15"), testLadder(t))
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Len(t, pools[0].Results, 1)
	assert.Equal(t, "BS U15", pools[0].Results[0].EventCode)
}

func TestResolvePools_FamiliesAreIsolated(t *testing.T) {
	results := []model.Result{
		result(1, "BS U17", "Spring Open", 5),
		result(1, "BD U15", "Doubles Cup", 50), // different discipline, same gender
		result(1, "GS U15", "Girls Open", 50),  // different gender entirely
	}

	pools, err := ResolvePools(results, target(t, "BS U17"), testLadder(t))
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Len(t, pools[0].Results, 1)
	assert.Equal(t, "BS U17", pools[0].Results[0].EventCode)
}

func TestResolvePools_IndependentPerTarget(t *testing.T) {
	// The same source results may feed both the U17 and U19 pools.
	results := []model.Result{
		result(1, "BS U15", "Regionals", 8),
		result(1, "BS U17", "Spring Open", 5),
		result(1, "BS U19", "Nationals", 3),
	}
	ladder := testLadder(t)

	u17, err := ResolvePools(results, target(t, "BS U17"), ladder)
	require.NoError(t, err)
	require.Len(t, u17, 1)
	assert.Len(t, u17[0].Results, 2) // U17 + U15

	u19, err := ResolvePools(results, target(t, "BS U19"), ladder)
	require.NoError(t, err)
	require.Len(t, u19, 1)
	assert.Len(t, u19[0].Results, 3) // U19 + U17 + U15
}

func TestResolvePools_UnknownAgeSurfacesError(t *testing.T) {
	ladder, err := NewLadder([]string{"U11", "U13"})
	require.NoError(t, err)

	_, err = ResolvePools(nil, target(t, "BS U17"), ladder)
	assert.Error(t, err)
}

func TestResolvePools_DeterministicOrder(t *testing.T) {
	results := []model.Result{
		result(9, "BS U17", "Open A", 1),
		result(4, "BS U17", "Open A", 2),
		result(7, "BS U17", "Open A", 3),
	}

	pools, err := ResolvePools(results, target(t, "BS U17"), testLadder(t))
	require.NoError(t, err)
	require.Len(t, pools, 3)
	assert.Equal(t, int64(4), pools[0].PlayerID)
	assert.Equal(t, int64(7), pools[1].PlayerID)
	assert.Equal(t, int64(9), pools[2].PlayerID)
}
