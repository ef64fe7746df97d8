package ingest

import (
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/fixedpoint"
	"github.com/settleflow/settleflow/pkg/logging"
	"github.com/settleflow/settleflow/pkg/metrics"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{
		Level:       logging.ErrorLevel,
		Output:      io.Discard,
		ServiceName: "test",
	})
}

func readAll(t *testing.T, s *CSVSource) []transaction.Transaction {
	t.Helper()
	var out []transaction.Transaction
	for {
		tx, err := s.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, tx)
	}
}

func TestCSVSourceParsesAllTypes(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"withdrawal,1,2,0.5",
		"dispute,1,1,",
		"resolve,1,1,",
		"chargeback,1,1,",
	}, "\n")

	txs := readAll(t, NewCSVSource(strings.NewReader(input), testLogger()))
	require.Len(t, txs, 5)

	assert.Equal(t, transaction.Deposit, txs[0].Type)
	assert.Equal(t, transaction.ClientID(1), txs[0].Client)
	assert.Equal(t, transaction.TransactionID(1), txs[0].ID)
	require.NotNil(t, txs[0].Amount)
	assert.Equal(t, fixedpoint.Amount(10000), *txs[0].Amount)

	assert.Equal(t, transaction.Withdrawal, txs[1].Type)
	require.NotNil(t, txs[1].Amount)
	assert.Equal(t, fixedpoint.Amount(5000), *txs[1].Amount)

	for _, tx := range txs[2:] {
		assert.Nil(t, tx.Amount, "dispute-family rows carry no amount")
	}
}

func TestCSVSourceTrimsWhitespace(t *testing.T) {
	input := "type, client, tx, amount\ndeposit, 2, 7, 3.25\n"

	txs := readAll(t, NewCSVSource(strings.NewReader(input), testLogger()))
	require.Len(t, txs, 1)
	assert.Equal(t, transaction.ClientID(2), txs[0].Client)
	assert.Equal(t, transaction.TransactionID(7), txs[0].ID)
	assert.Equal(t, fixedpoint.Amount(32500), *txs[0].Amount)
}

func TestCSVSourceSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"teleport,1,2,1.0",   // unknown type
		"deposit,banana,3,1", // bad client id
		"deposit,1,4",        // missing amount
		"deposit,1,5,-2.0",   // negative amount
		"withdrawal,1,6,0.25",
	}, "\n")

	txs := readAll(t, NewCSVSource(strings.NewReader(input), testLogger()))
	require.Len(t, txs, 2)
	assert.Equal(t, transaction.TransactionID(1), txs[0].ID)
	assert.Equal(t, transaction.TransactionID(6), txs[1].ID)
}

func TestCSVSourceCountsSkippedRows(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"teleport,1,2,1.0",
		"deposit,banana,3,1",
		"deposit,1,4,-2.0",
		"withdrawal,1,5,0.25",
	}, "\n")

	m := metrics.New(metrics.DefaultConfig())
	txs := readAll(t, NewCSVSource(strings.NewReader(input), testLogger(), WithMetrics(m)))

	require.Len(t, txs, 2)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsSkipped))
}

func TestCSVSourceShortDisputeRow(t *testing.T) {
	// dispute rows may omit the amount column entirely
	input := "type,client,tx,amount\ndeposit,1,1,1.0\ndispute,1,1\n"

	txs := readAll(t, NewCSVSource(strings.NewReader(input), testLogger()))
	require.Len(t, txs, 2)
	assert.Equal(t, transaction.Dispute, txs[1].Type)
	assert.Nil(t, txs[1].Amount)
}

func TestCSVSourceEmptyInput(t *testing.T) {
	txs := readAll(t, NewCSVSource(strings.NewReader(""), testLogger()))
	assert.Empty(t, txs)
}

func TestCSVSourceHeaderOnly(t *testing.T) {
	txs := readAll(t, NewCSVSource(strings.NewReader("type,client,tx,amount\n"), testLogger()))
	assert.Empty(t, txs)
}
