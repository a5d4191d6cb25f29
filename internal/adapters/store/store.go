package store

import "github.com/mmarfinetz/gmail-unsubscriber/internal/core"

// Store combines the persistence interfaces every backend implements
type Store interface {
	core.StatsStore
	core.ActivityStore

	// Close releases any resources held by the backend
	Close() error
}
