// Package ingest provides the input collaborators that turn external rows
// into validated transactions. A malformed row is logged and skipped,
// never propagated as a fatal error.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/fixedpoint"
	"github.com/settleflow/settleflow/pkg/logging"
	"github.com/settleflow/settleflow/pkg/metrics"
)

// Option configures an input source.
type Option func(*sourceOptions)

type sourceOptions struct {
	metrics *metrics.Metrics
}

// WithMetrics attaches a metrics collector. Sources count every skipped
// row against it.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *sourceOptions) {
		o.metrics = m
	}
}

func applyOptions(opts []Option) sourceOptions {
	var o sourceOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CSVSource reads transaction rows from CSV input with a
// "type,client,tx,amount" header. Amounts on dispute-family rows are
// ignored; the referenced transaction is the source of truth.
type CSVSource struct {
	reader  *csv.Reader
	logger  *logging.Logger
	metrics *metrics.Metrics
	header  bool
}

// NewCSVSource creates a source over r. The first row is expected to be
// the header.
func NewCSVSource(r io.Reader, logger *logging.Logger, opts ...Option) *CSVSource {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Dispute-family rows may omit the amount column entirely.
	reader.FieldsPerRecord = -1

	o := applyOptions(opts)
	return &CSVSource{
		reader:  reader,
		logger:  logger,
		metrics: o.metrics,
	}
}

// Next returns the next valid transaction, skipping malformed rows. It
// returns io.EOF when the input is exhausted.
func (s *CSVSource) Next() (transaction.Transaction, error) {
	for {
		record, err := s.reader.Read()
		if err == io.EOF {
			return transaction.Transaction{}, io.EOF
		}
		if err != nil {
			s.logger.Warn("skipping unreadable row", "error", err)
			s.countSkip()
			continue
		}

		if !s.header {
			s.header = true
			if looksLikeHeader(record) {
				continue
			}
		}

		tx, err := parseRecord(record)
		if err != nil {
			s.logger.Warn("skipping malformed row", "row", strings.Join(record, ","), "error", err)
			s.countSkip()
			continue
		}
		return tx, nil
	}
}

func (s *CSVSource) countSkip() {
	if s.metrics != nil {
		s.metrics.RowsSkipped.Inc()
	}
}

func looksLikeHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "type")
}

func parseRecord(record []string) (transaction.Transaction, error) {
	if len(record) < 3 {
		return transaction.Transaction{}, fmt.Errorf("expected at least 3 fields, got %d", len(record))
	}

	txType := transaction.Type(strings.ToLower(strings.TrimSpace(record[0])))
	if !txType.Valid() {
		return transaction.Transaction{}, fmt.Errorf("unknown transaction type %q", record[0])
	}

	client, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 16)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("invalid client id %q: %w", record[1], err)
	}

	id, err := strconv.ParseUint(strings.TrimSpace(record[2]), 10, 32)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("invalid transaction id %q: %w", record[2], err)
	}

	tx := transaction.Transaction{
		Type:   txType,
		Client: transaction.ClientID(client),
		ID:     transaction.TransactionID(id),
	}

	if txType.Monetary() {
		if len(record) < 4 || strings.TrimSpace(record[3]) == "" {
			return transaction.Transaction{}, fmt.Errorf("%s without amount", txType)
		}
		amount, err := fixedpoint.FromString(strings.TrimSpace(record[3]))
		if err != nil {
			return transaction.Transaction{}, err
		}
		tx.Amount = &amount
	}

	if err := tx.Validate(); err != nil {
		return transaction.Transaction{}, err
	}
	return tx, nil
}
