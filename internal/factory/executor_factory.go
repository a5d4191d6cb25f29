package factory

import (
	"fmt"

	"github.com/mmarfinetz/gmail-unsubscriber/internal/adapters/httpexec"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/config"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/core"
	"go.uber.org/zap"
)

// ExecutorFactory creates unsubscribe executors based on configuration
type ExecutorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewExecutorFactory creates a new executor factory
func NewExecutorFactory(cfg *config.Config, logger *zap.Logger) *ExecutorFactory {
	return &ExecutorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateExecutor creates an unsubscribe executor based on the configuration
func (f *ExecutorFactory) CreateExecutor() (core.UnsubscribeExecutor, error) {
	execCfg, err := f.cfg.GetExecutor()
	if err != nil {
		return nil, fmt.Errorf("invalid executor configuration: %w", err)
	}

	switch execCfg.Type {
	case "http":
		return httpexec.NewExecutor(execCfg.Timeout, execCfg.UserAgent, f.logger), nil
	case "noop":
		return httpexec.NewNoopExecutor(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported executor type: %s", execCfg.Type)
	}
}
