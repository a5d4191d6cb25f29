package di

import (
	"context"
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mmarfinetz/gmail-unsubscriber/internal/adapters/store"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/config"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/core"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/factory"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/links"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/logging"
)

// CLIFlags contains all command line flags for the application
type CLIFlags struct {
	// Run flags
	UserID string
	Query  string
	Max    int
	DryRun bool

	// Gmail flags
	Credentials string
	Token       string

	// Store flags
	StoreType  string
	SQLitePath string

	// Output flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Run flags
	flag.StringVar(&flags.UserID, "user", "default", "User identifier for stats and activity records")
	flag.StringVar(&flags.Query, "query", "", "Mailbox search query (defaults to typical subscription mail)")
	flag.IntVar(&flags.Max, "max", core.DefaultMaxEmails, "Maximum number of emails to process")
	flag.BoolVar(&flags.DryRun, "dry-run", false, "Locate links but do not perform unsubscribe requests")

	// Gmail flags
	flag.StringVar(&flags.Credentials, "credentials", "client_secret.json", "Path to OAuth client credentials file")
	flag.StringVar(&flags.Token, "token", "token.json", "Path to cached OAuth token file")

	// Store flags
	flag.StringVar(&flags.StoreType, "store", "memory", "Stats store backend (memory, sqlite, mysql)")
	flag.StringVar(&flags.SQLitePath, "sqlite-path", "", "Path to SQLite database file")

	// Output flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags) (*config.Config, error) {
		if flags.ConfigFile != "" {
			return config.New()
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register logger. File-driven runs follow the configured logging
	// section; flag-driven runs get the console logger.
	if err := container.Provide(func(flags *CLIFlags, cfg *config.Config) (*zap.Logger, error) {
		if flags.ConfigFile != "" {
			logger, err := logging.InitLogger(cfg)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return logger, nil
		}
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewExecutorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailboxFactory); err != nil {
		return nil, err
	}

	// Register persistence store
	if err := container.Provide(func(f *factory.StoreFactory) (store.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s store.Store) core.StatsStore { return s }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s store.Store) core.ActivityStore { return s }); err != nil {
		return nil, err
	}

	// Register unsubscribe executor
	if err := container.Provide(func(f *factory.ExecutorFactory) (core.UnsubscribeExecutor, error) {
		return f.CreateExecutor()
	}); err != nil {
		return nil, err
	}

	// Register mailbox
	if err := container.Provide(func(f *factory.MailboxFactory) (core.Mailbox, error) {
		return f.CreateMailbox(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register link locator
	if err := container.Provide(func(logger *zap.Logger) core.LinkLocator {
		return links.NewLocator(logger)
	}); err != nil {
		return nil, err
	}

	// Register unsubscribe service
	if err := container.Provide(func(
		mailbox core.Mailbox,
		locator core.LinkLocator,
		executor core.UnsubscribeExecutor,
		statsStore core.StatsStore,
		activityStore core.ActivityStore,
		logger *zap.Logger,
		cfg *config.Config,
	) (*core.UnsubscribeService, error) {
		batchCfg, err := cfg.GetBatch()
		if err != nil {
			return nil, err
		}
		return core.NewUnsubscribeService(
			mailbox,
			locator,
			executor,
			statsStore,
			activityStore,
			logger,
			cfg.GetGmail().Label,
			batchCfg.MessageDelay,
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("gmail.credentials_file", flags.Credentials)
	v.Set("gmail.token_file", flags.Token)

	if flags.Query != "" {
		v.Set("batch.search_query", flags.Query)
	}
	v.Set("batch.max_emails", flags.Max)

	if flags.DryRun {
		v.Set("executor.type", "noop")
	}

	v.Set("store.type", flags.StoreType)
	if flags.SQLitePath != "" {
		v.Set("store.sqlite_path", flags.SQLitePath)
	}

	return config.NewFromViper(v)
}
