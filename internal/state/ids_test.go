package state

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID_Format(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)
	id, err := NewRunID(now)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^run-20260305-103000-[0-9a-f]{4}$`), id)
}

func TestNewIssueID_Format(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)
	id, err := NewIssueID(now)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^P-[0-9a-z]+-[0-9a-f]{6}$`), id)
}

func TestNewTaskID_UsesIssueFragment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "T-a1b2c3-01", NewTaskID("P-ld9z1-a1b2c3", 1))
	assert.Equal(t, "T-standalone-09", NewTaskID("standalone", 9))
}

func TestToBase36RoundTrip(t *testing.T) {
	t.Parallel()

	for _, v := range []int64{0, 1, 35, 36, 1700000000, -42} {
		encoded := toBase36(v)
		decoded, err := ParseBase36(encoded)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func TestNewRunID_UniqueAcrossCalls(t *testing.T) {
	t.Parallel()

	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := NewRunID(now)
		require.NoError(t, err)
		seen[id] = true
	}
	// With 2 random bytes collisions are possible but vanishingly unlikely
	// across 50 draws; assert we got more than one distinct value.
	assert.Greater(t, len(seen), 1)
}
