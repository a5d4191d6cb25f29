package config

import "time"

// GmailConfig represents the configuration for the Gmail mailbox adapter
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
	Label           string
}

// BatchConfig represents the configuration for a batch run
type BatchConfig struct {
	SearchQuery  string
	MaxEmails    int
	MessageDelay time.Duration
}

// ExecutorConfig represents the configuration for the unsubscribe executor
type ExecutorConfig struct {
	Type      string
	Timeout   time.Duration
	UserAgent string
}

// StoreConfig represents the configuration for the stats/activity store
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// GetGmail returns the Gmail configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		CredentialsFile: c.GetString("gmail.credentials_file"),
		TokenFile:       c.GetString("gmail.token_file"),
		Label:           c.GetString("gmail.label"),
	}
}

// GetBatch returns the batch configuration
func (c *Config) GetBatch() (BatchConfig, error) {
	delay, err := c.GetDuration("batch.message_delay")
	if err != nil {
		return BatchConfig{}, err
	}
	return BatchConfig{
		SearchQuery:  c.GetString("batch.search_query"),
		MaxEmails:    c.GetInt("batch.max_emails"),
		MessageDelay: delay,
	}, nil
}

// GetExecutor returns the executor configuration
func (c *Config) GetExecutor() (ExecutorConfig, error) {
	timeout, err := c.GetDuration("executor.timeout")
	if err != nil {
		return ExecutorConfig{}, err
	}
	return ExecutorConfig{
		Type:      c.GetString("executor.type"),
		Timeout:   timeout,
		UserAgent: c.GetString("executor.user_agent"),
	}, nil
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}
