package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "benchlink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecentReadingsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	for _, line := range []string{"temp=21.1", "temp=21.2", "temp=21.3"} {
		require.NoError(t, s.RecordReading(line))
	}

	readings, err := s.RecentReadings(10)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, "temp=21.3", readings[0].Line)
	assert.Equal(t, "temp=21.1", readings[2].Line)
	assert.False(t, readings[0].RecordedAt.IsZero())
}

func TestRecentReadingsLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.RecordReading("line"))
	}

	readings, err := s.RecentReadings(4)
	require.NoError(t, err)
	assert.Len(t, readings, 4)

	// A non-positive limit falls back to the default rather than failing.
	readings, err = s.RecentReadings(0)
	require.NoError(t, err)
	assert.Len(t, readings, 10)
}

func TestRecentReadingsEmpty(t *testing.T) {
	s := openTestStore(t)

	readings, err := s.RecentReadings(10)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestConnEvents(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordConnEvent("connected", "/dev/ttyUSB0"))
	require.NoError(t, s.RecordConnEvent("disconnected", "/dev/ttyUSB0"))

	events, err := s.RecentConnEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "disconnected", events[0].Event)
	assert.Equal(t, "connected", events[1].Event)
	assert.Equal(t, "/dev/ttyUSB0", events[0].Port)
}

func TestSchemaBootstrapIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchlink.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.RecordReading("persisted"))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	readings, err := s2.RecentReadings(1)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "persisted", readings[0].Line)
}
