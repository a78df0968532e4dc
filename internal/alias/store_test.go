package alias

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "aliases.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetMissingReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Get("u2")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestSetGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set("u2", "Buddy"))
	got, err := s.Get("u2")
	require.NoError(t, err)
	assert.Equal(t, "Buddy", got)
}

func TestSetIsLastWriteWins(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set("u2", "Buddy"))
	require.NoError(t, s.Set("u2", "Listener"))
	got, err := s.Get("u2")
	require.NoError(t, err)
	assert.Equal(t, "Listener", got)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set("u2", "Buddy"))
	require.NoError(t, s.Remove("u2"))
	require.NoError(t, s.Remove("u2"))
	got, err := s.Get("u2")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
