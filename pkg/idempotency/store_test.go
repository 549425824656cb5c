package idempotency

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "keys", "idem.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReserveCompleteReplay(t *testing.T) {
	s := open(t)

	_, reserved, err := s.Reserve(1, "abc")
	require.NoError(t, err)
	assert.True(t, reserved)

	_, _, err = s.Reserve(1, "abc")
	assert.ErrorIs(t, err, ErrInProgress)

	require.NoError(t, s.Complete(1, "abc", 99))
	rec, reserved, err := s.Reserve(1, "abc")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, uint(99), rec.OrderID)

	// keys are per user
	_, reserved, err = s.Reserve(2, "abc")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestRelease(t *testing.T) {
	s := open(t)
	_, _, err := s.Reserve(1, "k")
	require.NoError(t, err)
	require.NoError(t, s.Release(1, "k"))

	_, reserved, err := s.Reserve(1, "k")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestExpiryAndPrune(t *testing.T) {
	s := open(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c", "d"} {
		_, _, err := s.Reserve(1, k)
		require.NoError(t, err)
		require.NoError(t, s.Complete(1, k, 5))
	}

	now = now.Add(30 * time.Minute)
	require.NoError(t, s.Complete(1, "d", 6))

	now = now.Add(45 * time.Minute)
	n, err := s.Prune()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rec, reserved, err := s.Reserve(1, "d")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, uint(6), rec.OrderID)

	// an expired key is claimable again
	_, reserved, err = s.Reserve(1, "a")
	require.NoError(t, err)
	assert.True(t, reserved)
}
