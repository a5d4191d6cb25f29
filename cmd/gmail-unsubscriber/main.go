package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmarfinetz/gmail-unsubscriber/internal/adapters/store"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/config"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/core"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run performs one batch unsubscription run and prints a summary
func run(
	flags *di.CLIFlags,
	cfg *config.Config,
	logger *zap.Logger,
	service *core.UnsubscribeService,
	persistence store.Store,
	activities core.ActivityStore,
) error {
	defer logger.Sync()
	defer func() {
		if err := persistence.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}()

	// Cancel the run on SIGINT/SIGTERM; stats persisted so far are kept
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received signal, stopping run", zap.String("signal", sig.String()))
		cancel()
	}()

	batchCfg, err := cfg.GetBatch()
	if err != nil {
		return fmt.Errorf("invalid batch configuration: %w", err)
	}

	logger.Info("Starting unsubscription run",
		zap.String("user", flags.UserID),
		zap.String("query", batchCfg.SearchQuery),
		zap.Int("max_emails", batchCfg.MaxEmails),
		zap.Bool("dry_run", flags.DryRun))

	summary, err := service.RunBatch(ctx, flags.UserID, batchCfg.SearchQuery, batchCfg.MaxEmails)
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	fmt.Printf("\n=== Run Summary ===\n")
	fmt.Printf("Emails scanned: %d\n", summary.Scanned)
	fmt.Printf("Unsubscribed: %d\n", summary.Unsubscribed)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Printf("Estimated time saved: %d minutes\n", summary.TimeSaved)

	records, err := activities.List(ctx, flags.UserID)
	if err != nil {
		logger.Error("Failed to list activities", zap.Error(err))
		return nil
	}
	fmt.Printf("\n=== Activity ===\n")
	for i := len(records) - 1; i >= 0; i-- {
		fmt.Printf("[%s] %s\n", records[i].Type, records[i].Message)
	}
	return nil
}
