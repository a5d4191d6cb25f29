package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mmarfinetz/gmail-unsubscriber/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

// TestSQLiteStore_LoadCreatesEmptyStats tests first-sight user creation
func TestSQLiteStore_LoadCreatesEmptyStats(t *testing.T) {
	// Arrange
	s, _ := newTestSQLiteStore(t)

	// Act
	stats, err := s.LoadStats(context.Background(), "u1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalScanned)
	assert.Equal(t, 0, stats.TotalUnsubscribed)
	assert.Empty(t, stats.Domains)
}

// TestSQLiteStore_StatsRoundTrip tests that stats and per-domain rows
// survive save and reload
func TestSQLiteStore_StatsRoundTrip(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s, _ := newTestSQLiteStore(t)
	stats := core.NewUserStats()
	stats.ApplyScan()
	stats.ApplyScan()
	stats.ApplySuccess("amazon.com", "Amazon", "news@amazon.com")
	stats.ApplySuccess("amazon.com", "Amazon", "deals@amazon.com")

	// Act
	require.NoError(t, s.SaveStats(ctx, "u1", stats))
	loaded, err := s.LoadStats(ctx, "u1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.TotalScanned)
	assert.Equal(t, 2, loaded.TotalUnsubscribed)
	assert.Equal(t, 2*core.MinutesSavedPerUnsubscribe, loaded.TimeSaved)
	require.Contains(t, loaded.Domains, "amazon.com")
	stat := loaded.Domains["amazon.com"]
	assert.Equal(t, 2, stat.Count)
	assert.Equal(t, "Amazon", stat.SenderName)
	assert.Equal(t, []string{"deals@amazon.com", "news@amazon.com"}, stat.Emails())
}

// TestSQLiteStore_StatsSurviveReopen tests durability across instances
func TestSQLiteStore_StatsSurviveReopen(t *testing.T) {
	// Arrange
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	first, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)

	stats := core.NewUserStats()
	stats.ApplyScan()
	stats.ApplySuccess("x.com", "X", "a@x.com")
	require.NoError(t, first.SaveStats(ctx, "u1", stats))
	require.NoError(t, first.Close())

	// Act
	second, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()
	loaded, err := second.LoadStats(ctx, "u1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.TotalUnsubscribed)
	require.Contains(t, loaded.Domains, "x.com")
}

// TestSQLiteStore_ActivityBound tests that the log is truncated to the
// newest records, newest first
func TestSQLiteStore_ActivityBound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s, _ := newTestSQLiteStore(t)

	// Act
	for i := 1; i <= core.MaxActivityRecords+10; i++ {
		record := core.NewActivity(core.ActivityInfo, fmt.Sprintf("event %d", i))
		require.NoError(t, s.Append(ctx, "u1", record))
	}
	records, err := s.List(ctx, "u1")

	// Assert
	require.NoError(t, err)
	require.Len(t, records, core.MaxActivityRecords)
	assert.Equal(t, fmt.Sprintf("event %d", core.MaxActivityRecords+10), records[0].Message)
	assert.Equal(t, "event 11", records[len(records)-1].Message)
}

// TestSQLiteStore_ActivityMetadataRoundTrip tests that metadata encodes
// and decodes through the TEXT column
func TestSQLiteStore_ActivityMetadataRoundTrip(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s, _ := newTestSQLiteStore(t)
	record := core.NewActivity(core.ActivitySuccess, "unsubscribed")
	record.Metadata = map[string]string{"domain": "amazon.com"}

	// Act
	require.NoError(t, s.Append(ctx, "u1", record))
	records, err := s.List(ctx, "u1")

	// Assert
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.ActivitySuccess, records[0].Type)
	assert.Equal(t, "unsubscribed", records[0].Message)
	assert.Equal(t, record.Time, records[0].Time)
	assert.Equal(t, map[string]string{"domain": "amazon.com"}, records[0].Metadata)
}

// TestSQLiteStore_ActivityBoundPerUser tests that truncation only
// affects the appending user
func TestSQLiteStore_ActivityBoundPerUser(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s, _ := newTestSQLiteStore(t)
	require.NoError(t, s.Append(ctx, "u2", core.NewActivity(core.ActivityInfo, "for u2")))

	// Act
	for i := 0; i < core.MaxActivityRecords+5; i++ {
		require.NoError(t, s.Append(ctx, "u1", core.NewActivity(core.ActivityInfo, "for u1")))
	}
	forU2, err := s.List(ctx, "u2")

	// Assert
	require.NoError(t, err)
	require.Len(t, forU2, 1)
	assert.Equal(t, "for u2", forU2[0].Message)
}
