// Package httpexec performs unsubscribe actions over HTTP.
package httpexec

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single unsubscribe request
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is a realistic browser User-Agent; some unsubscribe
// endpoints reject obvious bot clients
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Executor issues a single GET per candidate URL with redirect following.
// Success is strictly HTTP 200; everything else is failure. Retries, if
// any, happen at the orchestrator level by trying the next candidate.
type Executor struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewExecutor creates a new HTTP unsubscribe executor
func NewExecutor(timeout time.Duration, userAgent string, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Executor{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Execute attempts the unsubscribe action. It never propagates an error
// to the caller; any failure is logged and reported as false.
func (e *Executor) Execute(ctx context.Context, url string) bool {
	e.logger.Info("Attempting to unsubscribe", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		e.logger.Error("Invalid unsubscribe URL", zap.String("url", url), zap.Error(err))
		return false
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Error("Unsubscribe request failed", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("Non-200 status for unsubscribe",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return false
	}

	e.logger.Info("Successful GET unsubscribe", zap.String("url", url))
	return true
}

// NoopExecutor reports success without issuing requests. Used for dry
// runs.
type NoopExecutor struct {
	logger *zap.Logger
}

// NewNoopExecutor creates a dry-run executor
func NewNoopExecutor(logger *zap.Logger) *NoopExecutor {
	return &NoopExecutor{logger: logger}
}

// Execute logs the candidate and reports success
func (e *NoopExecutor) Execute(_ context.Context, url string) bool {
	e.logger.Info("Dry run: would unsubscribe", zap.String("url", url))
	return true
}
