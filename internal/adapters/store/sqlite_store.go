package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the StatsStore and
// ActivityStore interfaces
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite store and its schema
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA synchronous=NORMAL`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma: %w", err)
		}
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_active TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id TEXT PRIMARY KEY,
			total_scanned INTEGER DEFAULT 0,
			total_unsubscribed INTEGER DEFAULT 0,
			time_saved INTEGER DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata TEXT,
			timestamp TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS domains_unsubscribed (
			user_id TEXT NOT NULL,
			domain TEXT NOT NULL,
			sender_name TEXT,
			count INTEGER DEFAULT 0,
			emails_json TEXT DEFAULT '[]',
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, domain)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user_id ON user_activities (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_domains_user_id ON domains_unsubscribed (user_id)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// LoadStats returns the user's stats, creating an empty record on first
// sight of the user
func (s *SQLiteStore) LoadStats(ctx context.Context, userID string) (*core.UserStats, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	stats := core.NewUserStats()
	err := s.db.QueryRowContext(ctx, `
		SELECT total_scanned, total_unsubscribed, time_saved
		FROM user_stats
		WHERE user_id = ?
	`, userID).Scan(&stats.TotalScanned, &stats.TotalUnsubscribed, &stats.TimeSaved)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, sender_name, count, emails_json
		FROM domains_unsubscribed
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var domain, senderName, emailsJSON string
		var count int
		if err := rows.Scan(&domain, &senderName, &count, &emailsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan domain row: %w", err)
		}
		stat := core.NewDomainStat(senderName)
		stat.Count = count
		var emails []string
		if err := json.Unmarshal([]byte(emailsJSON), &emails); err != nil {
			s.logger.Warn("Malformed emails list for domain, skipping",
				zap.String("domain", domain),
				zap.Error(err))
		}
		for _, email := range emails {
			stat.AddEmail(email)
		}
		stats.Domains[domain] = stat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domain rows: %w", err)
	}

	return stats, nil
}

// SaveStats persists the user's stats, replacing per-domain rows
func (s *SQLiteStore) SaveStats(ctx context.Context, userID string, stats *core.UserStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, total_scanned, total_unsubscribed, time_saved, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			total_scanned = excluded.total_scanned,
			total_unsubscribed = excluded.total_unsubscribed,
			time_saved = excluded.time_saved,
			updated_at = CURRENT_TIMESTAMP
	`, userID, stats.TotalScanned, stats.TotalUnsubscribed, stats.TimeSaved)
	if err != nil {
		return fmt.Errorf("failed to upsert stats: %w", err)
	}

	for domain, stat := range stats.Domains {
		// The email set is always materialized as a sorted list here
		emailsJSON, err := json.Marshal(stat.Emails())
		if err != nil {
			return fmt.Errorf("failed to encode emails for %s: %w", domain, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO domains_unsubscribed (user_id, domain, sender_name, count, emails_json, updated_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(user_id, domain) DO UPDATE SET
				sender_name = excluded.sender_name,
				count = excluded.count,
				emails_json = excluded.emails_json,
				updated_at = CURRENT_TIMESTAMP
		`, userID, domain, stat.SenderName, stat.Count, string(emailsJSON))
		if err != nil {
			return fmt.Errorf("failed to upsert domain %s: %w", domain, err)
		}
	}

	return tx.Commit()
}

// Append inserts a record and truncates the user's log to the most
// recent MaxActivityRecords entries
func (s *SQLiteStore) Append(ctx context.Context, userID string, record core.ActivityRecord) error {
	var metadata sql.NullString
	if len(record.Metadata) > 0 {
		b, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode activity metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_activities (user_id, type, message, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, userID, string(record.Type), record.Message, metadata, record.Time)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM user_activities
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM user_activities
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
	`, userID, userID, core.MaxActivityRecords)
	if err != nil {
		return fmt.Errorf("failed to truncate activities: %w", err)
	}
	return nil
}

// List returns the user's activities, newest first
func (s *SQLiteStore) List(ctx context.Context, userID string) ([]core.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, message, metadata, timestamp
		FROM user_activities
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID, core.MaxActivityRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var records []core.ActivityRecord
	for rows.Next() {
		var record core.ActivityRecord
		var activityType string
		var metadata sql.NullString
		if err := rows.Scan(&activityType, &record.Message, &metadata, &record.Time); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		record.Type = core.ActivityType(activityType)
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &record.Metadata); err != nil {
				s.logger.Warn("Malformed activity metadata, dropping", zap.Error(err))
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id) VALUES (?)
		ON CONFLICT(user_id) DO UPDATE SET last_active = CURRENT_TIMESTAMP
	`, userID); err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_stats (user_id) VALUES (?)
	`, userID); err != nil {
		return fmt.Errorf("failed to ensure stats row: %w", err)
	}
	return nil
}
