// Package store persists per-user statistics and activity logs.
package store

import (
	"context"
	"sync"

	"github.com/mmarfinetz/gmail-unsubscriber/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the StatsStore and
// ActivityStore interfaces. State does not survive a restart.
type MemoryStore struct {
	stats      map[string]*core.UserStats
	activities map[string][]core.ActivityRecord
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		stats:      make(map[string]*core.UserStats),
		activities: make(map[string][]core.ActivityRecord),
		logger:     logger,
	}
}

// LoadStats returns a copy of the user's stats, creating an empty record
// on first sight of the user
func (s *MemoryStore) LoadStats(_ context.Context, userID string) (*core.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.stats[userID]
	if !ok {
		stats = core.NewUserStats()
		s.stats[userID] = stats
		s.logger.Info("Created stats for new user", zap.String("user_id", userID))
	}
	return cloneStats(stats), nil
}

// SaveStats persists a copy of the user's stats
func (s *MemoryStore) SaveStats(_ context.Context, userID string, stats *core.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats[userID] = cloneStats(stats)
	return nil
}

// Append prepends a record and truncates the log to MaxActivityRecords
func (s *MemoryStore) Append(_ context.Context, userID string, record core.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := append([]core.ActivityRecord{record}, s.activities[userID]...)
	if len(records) > core.MaxActivityRecords {
		records = records[:core.MaxActivityRecords]
	}
	s.activities[userID] = records
	return nil
}

// List returns the user's activities, newest first
func (s *MemoryStore) List(_ context.Context, userID string) ([]core.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.activities[userID]
	out := make([]core.ActivityRecord, len(records))
	copy(out, records)
	return out, nil
}

// cloneStats deep-copies stats so callers never alias stored state
func cloneStats(stats *core.UserStats) *core.UserStats {
	out := core.NewUserStats()
	out.TotalScanned = stats.TotalScanned
	out.TotalUnsubscribed = stats.TotalUnsubscribed
	out.TimeSaved = stats.TimeSaved
	for domain, stat := range stats.Domains {
		copied := core.NewDomainStat(stat.SenderName)
		copied.Count = stat.Count
		for _, email := range stat.Emails() {
			copied.AddEmail(email)
		}
		out.Domains[domain] = copied
	}
	return out
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
