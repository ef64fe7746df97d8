package ingest

import (
	"context"
	"io"

	"github.com/segmentio/kafka-go"

	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/logging"
	"github.com/settleflow/settleflow/pkg/metrics"
)

// KafkaSource consumes JSON-encoded transactions from a Kafka topic. Used
// in service mode, where the input stream has no natural end; Next returns
// io.EOF only once the context is canceled.
type KafkaSource struct {
	reader  *kafka.Reader
	logger  *logging.Logger
	metrics *metrics.Metrics
	ctx     context.Context
}

// KafkaConfig holds the consumer parameters for a Kafka source.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewKafkaSource creates a Kafka-backed transaction source. The context
// bounds the lifetime of the source.
func NewKafkaSource(ctx context.Context, cfg KafkaConfig, logger *logging.Logger, opts ...Option) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})

	o := applyOptions(opts)
	return &KafkaSource{
		reader:  reader,
		logger:  logger,
		metrics: o.metrics,
		ctx:     ctx,
	}
}

// Next returns the next valid transaction from the topic, skipping
// messages that fail to decode or validate.
func (s *KafkaSource) Next() (transaction.Transaction, error) {
	for {
		msg, err := s.reader.ReadMessage(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return transaction.Transaction{}, io.EOF
			}
			return transaction.Transaction{}, err
		}

		tx, err := transaction.FromJSON(msg.Value)
		if err != nil {
			s.logger.Warn("skipping undecodable message", "offset", msg.Offset, "error", err)
			s.countSkip()
			continue
		}
		if err := tx.Validate(); err != nil {
			s.logger.Warn("skipping invalid transaction", "offset", msg.Offset, "error", err)
			s.countSkip()
			continue
		}
		return tx, nil
	}
}

func (s *KafkaSource) countSkip() {
	if s.metrics != nil {
		s.metrics.RowsSkipped.Inc()
	}
}

// Ping verifies the brokers are reachable. Used by health checks.
func (s *KafkaSource) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", s.reader.Config().Brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

// Close releases the underlying consumer.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
