package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the StatsStore and
// ActivityStore interfaces
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL store and its schema
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id VARCHAR(255) PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_active TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id VARCHAR(255) PRIMARY KEY,
			total_scanned INT DEFAULT 0,
			total_unsubscribed INT DEFAULT 0,
			time_saved INT DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_activities (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			type VARCHAR(32) NOT NULL,
			message TEXT NOT NULL,
			metadata TEXT,
			timestamp VARCHAR(64) NOT NULL,
			INDEX idx_activities_user_id (user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS domains_unsubscribed (
			user_id VARCHAR(255) NOT NULL,
			domain VARCHAR(255) NOT NULL,
			sender_name VARCHAR(255),
			count INT DEFAULT 0,
			emails_json TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, domain)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// LoadStats returns the user's stats, creating an empty record on first
// sight of the user
func (s *MySQLStore) LoadStats(ctx context.Context, userID string) (*core.UserStats, error) {
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

	rows, err := s.db.QueryContext(ctx, "SELECT domain, sender_name, `count`, emails_json FROM domains_unsubscribed WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var domain string
		var senderName, emailsJSON sql.NullString
		var count int
		if err := rows.Scan(&domain, &senderName, &count, &emailsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan domain row: %w", err)
		}
		stat := core.NewDomainStat(senderName.String)
		stat.Count = count
		if emailsJSON.Valid {
			var emails []string
			if err := json.Unmarshal([]byte(emailsJSON.String), &emails); err != nil {
				s.logger.Warn("Malformed emails list for domain, skipping",
					zap.String("domain", domain),
					zap.Error(err))
			}
			for _, email := range emails {
				stat.AddEmail(email)
			}
		}
		stats.Domains[domain] = stat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domain rows: %w", err)
	}

	return stats, nil
}

// SaveStats persists the user's stats, replacing per-domain rows
func (s *MySQLStore) SaveStats(ctx context.Context, userID string, stats *core.UserStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, total_scanned, total_unsubscribed, time_saved)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			total_scanned = VALUES(total_scanned),
			total_unsubscribed = VALUES(total_unsubscribed),
			time_saved = VALUES(time_saved)
	`, userID, stats.TotalScanned, stats.TotalUnsubscribed, stats.TimeSaved)
	if err != nil {
		return fmt.Errorf("failed to upsert stats: %w", err)
	}

	for domain, stat := range stats.Domains {
		emailsJSON, err := json.Marshal(stat.Emails())
		if err != nil {
			return fmt.Errorf("failed to encode emails for %s: %w", domain, err)
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO domains_unsubscribed (user_id, domain, sender_name, `count`, emails_json) VALUES (?, ?, ?, ?, ?) ON DUPLICATE KEY UPDATE sender_name = VALUES(sender_name), `count` = VALUES(`count`), emails_json = VALUES(emails_json)",
			userID, domain, stat.SenderName, stat.Count, string(emailsJSON))
		if err != nil {
			return fmt.Errorf("failed to upsert domain %s: %w", domain, err)
		}
	}

	return tx.Commit()
}

// Append inserts a record and truncates the user's log to the most
// recent MaxActivityRecords entries
func (s *MySQLStore) Append(ctx context.Context, userID string, record core.ActivityRecord) error {
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

	// MySQL cannot delete from a table referenced by a plain subquery,
	// so the ids to keep go through a derived table
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM user_activities
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM (
				SELECT id FROM user_activities
				WHERE user_id = ?
				ORDER BY id DESC
				LIMIT ?
			) keep
		)
	`, userID, userID, core.MaxActivityRecords)
	if err != nil {
		return fmt.Errorf("failed to truncate activities: %w", err)
	}
	return nil
}

// List returns the user's activities, newest first
func (s *MySQLStore) List(ctx context.Context, userID string) ([]core.ActivityRecord, error) {
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) ensureUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id) VALUES (?)
		ON DUPLICATE KEY UPDATE last_active = CURRENT_TIMESTAMP
	`, userID); err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO user_stats (user_id) VALUES (?)
	`, userID); err != nil {
		return fmt.Errorf("failed to ensure stats row: %w", err)
	}
	return nil
}
