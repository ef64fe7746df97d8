// Package pipeline wires the two-stage producer/consumer arrangement: a
// parser stage feeding validated transactions into a bounded queue, and a
// single processing stage draining the queue into the ledger. The bounded
// queue provides backpressure if processing falls behind; the single
// consumer serializes transaction application, which preserves per-client
// arrival order without per-account locking.
package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/settleflow/settleflow/internal/ledger"
	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/errors"
	"github.com/settleflow/settleflow/pkg/logging"
	"github.com/settleflow/settleflow/pkg/metrics"
)

// DefaultQueueSize is the default capacity of the bounded queue.
const DefaultQueueSize = 1024

// Source produces validated transactions in arrival order. Next returns
// io.EOF when the input is exhausted; any other error aborts the run.
type Source interface {
	Next() (transaction.Transaction, error)
}

// Pipeline drives transactions from a source through the state machine.
type Pipeline struct {
	source    Source
	manager   *ledger.Manager
	queueSize int
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithQueueSize overrides the bounded queue capacity.
func WithQueueSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a pipeline over the given source and state machine.
func New(source Source, manager *ledger.Manager, logger *logging.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    source,
		manager:   manager,
		queueSize: DefaultQueueSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes the source to exhaustion. Per-transaction failures are
// logged and skipped; only source failures other than io.EOF are returned.
// Run blocks until both stages have finished.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.New().String()
	log := p.logger.WithField("run_id", runID)
	log.Info("pipeline started", "queue_size", p.queueSize)

	queue := make(chan transaction.Transaction, p.queueSize)

	var produceErr error
	var wg sync.WaitGroup
	wg.Add(1)

	// Producer: parse and enqueue. The blocking send provides
	// backpressure when the consumer falls behind.
	go func() {
		defer wg.Done()
		defer close(queue)

		for {
			tx, err := p.source.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				produceErr = errors.Wrap(err, "source failed")
				return
			}

			select {
			case queue <- tx:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Consumer: record eligible transactions in the ledger store before
	// applying them, so a later dispute can find them.
	var processed, failed uint64
	for tx := range queue {
		if p.metrics != nil {
			p.metrics.QueueDepth.Set(float64(len(queue)))
		}

		// A ledger-store write failure is logged but does not drop the
		// transaction; a later dispute of it will fail its lookup instead.
		if err := p.manager.Record(ctx, tx); err != nil {
			log.Error("failed to record transaction", "tx", tx.ID, "error", err)
		}

		start := time.Now()
		if err := p.manager.Process(ctx, tx); err != nil {
			log.Warn("transaction rejected",
				"tx", tx.ID, "client", tx.Client, "type", tx.Type, "error", err)
			failed++
			if p.metrics != nil {
				p.metrics.TransactionsFailed.WithLabelValues(errors.CodeOf(err)).Inc()
			}
			continue
		}

		processed++
		if p.metrics != nil {
			p.metrics.TransactionsProcessed.WithLabelValues(string(tx.Type)).Inc()
			p.metrics.ProcessDuration.Observe(time.Since(start).Seconds())
		}
	}

	wg.Wait()

	log.Info("pipeline finished", "processed", processed, "failed", failed)
	return produceErr
}
