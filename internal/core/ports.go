package core

import (
	"context"
	"errors"
)

// ErrAuthExpired marks a systemic credential failure. Mailbox adapters
// wrap authentication-class API errors with it so the orchestrator can
// distinguish them from per-message failures.
var ErrAuthExpired = errors.New("mailbox credentials expired")

// Mailbox defines the interface for the user's mailbox
type Mailbox interface {
	// Search returns up to limit message identifiers matching the query
	Search(ctx context.Context, query string, limit int) ([]string, error)

	// GetMessage retrieves the full message including its MIME tree
	GetMessage(ctx context.Context, id string) (*Message, error)

	// EnsureLabel returns the id of the named label, creating it if missing
	EnsureLabel(ctx context.Context, name string) (string, error)

	// ModifyLabels adds and removes labels on a message
	ModifyLabels(ctx context.Context, id string, add, remove []string) error
}

// UnsubscribeExecutor attempts a single unsubscribe action against a URL.
// It reports success or failure and never returns an error to its caller.
type UnsubscribeExecutor interface {
	Execute(ctx context.Context, url string) bool
}

// LinkLocator scans extracted body content for unsubscribe candidates
type LinkLocator interface {
	// Find returns candidate URLs in document order; nil when none qualify
	Find(body string) []string
}

// StatsStore persists per-user statistics
type StatsStore interface {
	// LoadStats returns the user's stats, creating an empty record on
	// first sight of the user
	LoadStats(ctx context.Context, userID string) (*UserStats, error)

	// SaveStats persists the user's stats
	SaveStats(ctx context.Context, userID string, stats *UserStats) error
}

// ActivityStore persists the bounded per-user activity log
type ActivityStore interface {
	// Append prepends a record and truncates the log to MaxActivityRecords
	Append(ctx context.Context, userID string, record ActivityRecord) error

	// List returns the user's activities, newest first
	List(ctx context.Context, userID string) ([]ActivityRecord, error)
}
