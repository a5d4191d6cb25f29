package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaults tests that a bare configuration carries working defaults
func TestDefaults(t *testing.T) {
	// Arrange
	cfg := NewFromViper(NewEmptyViper())

	// Act + Assert
	gmail := cfg.GetGmail()
	assert.Equal(t, "client_secret.json", gmail.CredentialsFile)
	assert.Equal(t, "token.json", gmail.TokenFile)
	assert.Equal(t, "UNSUBSCRIBED", gmail.Label)

	batch, err := cfg.GetBatch()
	require.NoError(t, err)
	assert.Equal(t, 50, batch.MaxEmails)
	assert.Equal(t, 2*time.Second, batch.MessageDelay)
	assert.Contains(t, batch.SearchQuery, "unsubscribe")

	executor, err := cfg.GetExecutor()
	require.NoError(t, err)
	assert.Equal(t, "http", executor.Type)
	assert.Equal(t, 10*time.Second, executor.Timeout)
	assert.Contains(t, executor.UserAgent, "Mozilla/5.0")

	store := cfg.GetStore()
	assert.Equal(t, "memory", store.Type)
}

// TestOverrides tests that explicit values win over defaults
func TestOverrides(t *testing.T) {
	// Arrange
	v := NewEmptyViper()
	v.Set("batch.max_emails", 5)
	v.Set("batch.message_delay", "0s")
	v.Set("store.type", "sqlite")
	v.Set("store.sqlite_path", "/tmp/x.db")
	cfg := NewFromViper(v)

	// Act
	batch, err := cfg.GetBatch()
	require.NoError(t, err)
	store := cfg.GetStore()

	// Assert
	assert.Equal(t, 5, batch.MaxEmails)
	assert.Equal(t, time.Duration(0), batch.MessageDelay)
	assert.Equal(t, "sqlite", store.Type)
	assert.Equal(t, "/tmp/x.db", store.SQLitePath)
}

// TestGetDuration_Invalid tests the error path for malformed durations
func TestGetDuration_Invalid(t *testing.T) {
	// Arrange
	v := NewEmptyViper()
	v.Set("batch.message_delay", "not-a-duration")
	cfg := NewFromViper(v)

	// Act
	_, err := cfg.GetBatch()

	// Assert
	assert.Error(t, err)
}
