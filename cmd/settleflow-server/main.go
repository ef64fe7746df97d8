// Package main provides the long-running entry point: transactions arrive
// over Kafka, are applied to the ledger, and account balances are served
// over a read-only HTTP API. Services are coordinated through the service
// registry and shut down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/settleflow/settleflow/internal/account"
	"github.com/settleflow/settleflow/internal/api"
	"github.com/settleflow/settleflow/internal/ingest"
	"github.com/settleflow/settleflow/internal/ledger"
	"github.com/settleflow/settleflow/internal/pipeline"
	"github.com/settleflow/settleflow/internal/storage"
	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/config"
	"github.com/settleflow/settleflow/pkg/health"
	"github.com/settleflow/settleflow/pkg/logging"
	"github.com/settleflow/settleflow/pkg/metrics"
	"github.com/settleflow/settleflow/pkg/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "settleflow-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("settleflow-server", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to configuration file")
	logLevel := flags.String("log-level", "", "log level override (debug, info, warn, error)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	opts := config.DefaultLoadOptions()
	opts.ConfigFile = *configFile
	cfg, err := config.LoadWithOptions(opts)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := logging.New(logging.Config{
		Level:       logging.LogLevel(cfg.Log.Level),
		Output:      os.Stderr,
		ServiceName: "settleflow-server",
		Environment: cfg.Log.Environment,
	})

	m := metrics.New(metrics.DefaultConfig())
	healthRegistry := health.NewRegistry(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	accounts, txs, closeStores, err := buildStores(cfg, healthRegistry)
	if err != nil {
		return err
	}
	defer closeStores()

	manager := ledger.NewManager(accounts, txs)

	source := ingest.NewKafkaSource(ctx, ingest.KafkaConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}, logger, ingest.WithMetrics(m))
	defer source.Close()
	healthRegistry.Register("kafka", health.KafkaChecker(cfg.Kafka.Brokers, source.Ping))

	registry := service.NewRegistry(logger)

	p := pipeline.New(source, manager, logger,
		pipeline.WithQueueSize(cfg.Engine.QueueSize),
		pipeline.WithMetrics(m))
	pipelineService := pipeline.NewService(p)
	if err := registry.Register(pipelineService); err != nil {
		return err
	}
	healthRegistry.Register("pipeline", health.ServiceChecker("pipeline", func(context.Context) error {
		return pipelineService.Health()
	}))

	apiServer := api.NewServer(cfg, accounts, logger, m, healthRegistry)
	if err := registry.Register(api.NewService(apiServer)); err != nil {
		return err
	}

	logger.Info("starting all services")
	if err := registry.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start services: %w", err)
	}
	logger.Info("all services started")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	logger.Info("shutting down")
	cancel()

	if err := registry.StopAll(context.Background()); err != nil {
		logger.Error("error during shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildStores creates the account and transaction stores for the
// configured backend and registers the relevant health checks.
func buildStores(cfg *config.Config, healthRegistry *health.Registry) (ledger.AccountStore, ledger.TransactionStore, func(), error) {
	switch cfg.Engine.Store {
	case "memory":
		accounts := storage.NewMemoryStore[transaction.ClientID, account.Account]()
		txs := storage.NewMemoryStore[transaction.TransactionID, transaction.Transaction]()
		return accounts, txs, func() {}, nil

	case "redis":
		storeCfg := storage.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		accounts, err := storage.NewRedisStore[transaction.ClientID, account.Account](storeCfg, "account:")
		if err != nil {
			return nil, nil, nil, err
		}
		txs, err := storage.NewRedisStore[transaction.TransactionID, transaction.Transaction](storeCfg, "tx:")
		if err != nil {
			accounts.Close()
			return nil, nil, nil, err
		}
		healthRegistry.Register("redis", health.RedisChecker(cfg.Redis.Address, accounts.Ping))
		closeStores := func() {
			accounts.Close()
			txs.Close()
		}
		return accounts, txs, closeStores, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q", cfg.Engine.Store)
	}
}
