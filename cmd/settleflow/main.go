// Package main provides the batch entry point: read a transaction CSV,
// apply every record to the ledger, and write the final account snapshot.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/settleflow/settleflow/internal/account"
	"github.com/settleflow/settleflow/internal/ingest"
	"github.com/settleflow/settleflow/internal/ledger"
	"github.com/settleflow/settleflow/internal/pipeline"
	"github.com/settleflow/settleflow/internal/report"
	"github.com/settleflow/settleflow/internal/storage"
	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "settleflow: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("settleflow", pflag.ContinueOnError)
	output := flags.StringP("output", "o", "", "write the account snapshot to this file instead of stdout")
	logLevel := flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	queueSize := flags.Int("queue-size", pipeline.DefaultQueueSize, "capacity of the bounded processing queue")
	store := flags.String("store", "memory", "backing store (memory or redis)")
	redisAddr := flags.String("redis-addr", "localhost:6379", "redis address when --store=redis")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <transaction-csv-file>\n\n", os.Args[0])
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf("expected exactly one input file, got %d arguments", flags.NArg())
	}

	logger := logging.New(logging.Config{
		Level:       logging.LogLevel(*logLevel),
		Output:      os.Stderr,
		ServiceName: "settleflow",
		Environment: "cli",
	})

	accounts, txs, closeStores, err := buildStores(*store, *redisAddr)
	if err != nil {
		return err
	}
	defer closeStores()

	file, err := os.Open(flags.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	manager := ledger.NewManager(accounts, txs)
	source := ingest.NewCSVSource(file, logger)

	ctx := context.Background()
	p := pipeline.New(source, manager, logger, pipeline.WithQueueSize(*queueSize))
	if err := p.Run(ctx); err != nil {
		return err
	}

	snapshot, err := manager.Accounts(ctx)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return report.WriteCSV(out, snapshot)
}

// buildStores creates the account and transaction stores for the selected
// backend.
func buildStores(kind, redisAddr string) (ledger.AccountStore, ledger.TransactionStore, func(), error) {
	switch kind {
	case "memory":
		accounts := storage.NewMemoryStore[transaction.ClientID, account.Account]()
		txs := storage.NewMemoryStore[transaction.TransactionID, transaction.Transaction]()
		return accounts, txs, func() {}, nil

	case "redis":
		cfg := storage.Config{Address: redisAddr}
		accounts, err := storage.NewRedisStore[transaction.ClientID, account.Account](cfg, "account:")
		if err != nil {
			return nil, nil, nil, err
		}
		txs, err := storage.NewRedisStore[transaction.TransactionID, transaction.Transaction](cfg, "tx:")
		if err != nil {
			accounts.Close()
			return nil, nil, nil, err
		}
		closeStores := func() {
			accounts.Close()
			txs.Close()
		}
		return accounts, txs, closeStores, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q (want memory or redis)", kind)
	}
}
