package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLadder_RejectsEmptyAndDuplicates(t *testing.T) {
	_, err := NewLadder(nil)
	assert.Error(t, err)

	_, err = NewLadder([]string{"U11", "U13", "U11"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate age bracket U11")
}

func TestLadder_LowerAges(t *testing.T) {
	l, err := NewLadder([]string{"U11", "U13", "U15", "U17", "U19"})
	require.NoError(t, err)

	lower, err := l.LowerAges("U17")
	require.NoError(t, err)
	assert.Equal(t, []string{"U11", "U13", "U15"}, lower)

	lower, err = l.LowerAges("U11")
	require.NoError(t, err)
	assert.Empty(t, lower)
}

func TestLadder_UnknownAgeIsConfigError(t *testing.T) {
	l, err := NewLadder([]string{"U11", "U13"})
	require.NoError(t, err)

	_, err = l.LowerAges("U17")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "U17")
	assert.False(t, l.Contains("U17"))
	assert.True(t, l.Contains("U13"))
}
