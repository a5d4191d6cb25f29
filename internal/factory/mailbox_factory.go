package factory

import (
	"context"
	"fmt"

	"github.com/mmarfinetz/gmail-unsubscriber/internal/adapters/gmailapi"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/config"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/core"
	"go.uber.org/zap"
)

// MailboxFactory creates mailbox adapters based on configuration
type MailboxFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailboxFactory creates a new mailbox factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger) *MailboxFactory {
	return &MailboxFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailbox creates a Gmail-backed mailbox. The first run walks the
// OAuth consent flow and caches the resulting token.
func (f *MailboxFactory) CreateMailbox(ctx context.Context) (core.Mailbox, error) {
	gmailCfg := f.cfg.GetGmail()
	svc, err := gmailapi.NewService(ctx, gmailCfg.CredentialsFile, gmailCfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return gmailapi.NewMailbox(svc, f.logger), nil
}
