package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleflow/settleflow/internal/account"
	"github.com/settleflow/settleflow/internal/ingest"
	"github.com/settleflow/settleflow/internal/ledger"
	"github.com/settleflow/settleflow/internal/storage"
	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/errors"
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

// runCSV drives a CSV input through a fresh pipeline and returns the final
// account snapshot.
func runCSV(t *testing.T, input string, opts ...Option) map[transaction.ClientID]account.Account {
	t.Helper()

	accounts := storage.NewMemoryStore[transaction.ClientID, account.Account]()
	txs := storage.NewMemoryStore[transaction.TransactionID, transaction.Transaction]()
	manager := ledger.NewManager(accounts, txs)
	source := ingest.NewCSVSource(strings.NewReader(input), testLogger())

	p := New(source, manager, testLogger(), opts...)
	require.NoError(t, p.Run(context.Background()))

	snapshot, err := manager.Accounts(context.Background())
	require.NoError(t, err)
	for _, acct := range snapshot {
		require.True(t, acct.Consistent(), "invariant violated: %+v", acct)
	}
	return snapshot
}

func TestPipelineEndToEnd(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"deposit,2,2,2.0",
		"deposit,1,3,2.0",
		"withdrawal,1,4,1.5",
		"withdrawal,2,5,3.0", // insufficient funds, skipped
	}, "\n")

	snapshot := runCSV(t, input)
	require.Len(t, snapshot, 2)

	one := snapshot[1]
	assert.Equal(t, fixedpoint.Amount(15000), one.Available)
	assert.Equal(t, fixedpoint.Amount(15000), one.Total)

	two := snapshot[2]
	assert.Equal(t, fixedpoint.Amount(20000), two.Available)
	assert.Equal(t, fixedpoint.Amount(20000), two.Total)
	assert.False(t, two.Locked)
}

func TestPipelineDisputeLifecycle(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"withdrawal,1,2,0.5",
		"dispute,1,1,",
		"resolve,1,1,",
	}, "\n")

	snapshot := runCSV(t, input)
	one := snapshot[1]
	assert.Equal(t, fixedpoint.Amount(5000), one.Available)
	assert.Equal(t, fixedpoint.Zero, one.Held)
	assert.Equal(t, fixedpoint.Amount(5000), one.Total)
}

func TestPipelineChargebackLocksOutLaterTransactions(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"dispute,1,1,",
		"chargeback,1,1,",
		"deposit,1,2,5.0", // rejected: account locked
	}, "\n")

	snapshot := runCSV(t, input)
	one := snapshot[1]
	assert.True(t, one.Locked)
	assert.Equal(t, fixedpoint.Zero, one.Total)
}

func TestPipelineFailuresAreIsolated(t *testing.T) {
	// a dispute referencing an unknown transaction must not disturb
	// processing of later rows
	input := strings.Join([]string{
		"type,client,tx,amount",
		"dispute,1,99,",
		"deposit,1,1,1.0",
	}, "\n")

	snapshot := runCSV(t, input)
	one := snapshot[1]
	assert.Equal(t, fixedpoint.Amount(10000), one.Available)
}

func TestPipelineMalformedRowsAreSkipped(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"garbage row that is not a transaction",
		"deposit,1,1,1.0",
	}, "\n")

	snapshot := runCSV(t, input)
	require.Len(t, snapshot, 1)
	assert.Equal(t, fixedpoint.Amount(10000), snapshot[1].Total)
}

func TestPipelineSmallQueue(t *testing.T) {
	// exercise backpressure with a queue smaller than the input
	var rows []string
	rows = append(rows, "type,client,tx,amount")
	rows = append(rows, "deposit,1,1,10.0")
	for i := 2; i <= 50; i++ {
		rows = append(rows, fmt.Sprintf("withdrawal,1,%d,0.1", i))
	}

	snapshot := runCSV(t, strings.Join(rows, "\n"), WithQueueSize(2))
	one := snapshot[1]
	assert.Equal(t, fixedpoint.Amount(51000), one.Total) // 10.0 - 49*0.1
}

// failingTxStore rejects every write, simulating an unavailable ledger
// backend.
type failingTxStore struct{}

func (failingTxStore) Get(ctx context.Context, key transaction.TransactionID) (transaction.Transaction, error) {
	return transaction.Transaction{}, errors.StorageWrap(errors.ErrNotFound, errors.OpGet, "unavailable")
}

func (failingTxStore) Set(ctx context.Context, key transaction.TransactionID, value transaction.Transaction) error {
	return errors.NewStorageError(errors.StorageErrWrite, "write failed", errors.ErrUnavailable)
}

func (failingTxStore) All(ctx context.Context) (map[transaction.TransactionID]transaction.Transaction, error) {
	return map[transaction.TransactionID]transaction.Transaction{}, nil
}

func TestPipelineRecordFailureStillApplies(t *testing.T) {
	// a failed ledger-store write must not drop the transaction itself;
	// the account balance is still updated
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"withdrawal,1,2,0.25",
	}, "\n")

	accounts := storage.NewMemoryStore[transaction.ClientID, account.Account]()
	manager := ledger.NewManager(accounts, failingTxStore{})
	source := ingest.NewCSVSource(strings.NewReader(input), testLogger())

	p := New(source, manager, testLogger())
	require.NoError(t, p.Run(context.Background()))

	snapshot, err := manager.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, fixedpoint.Amount(7500), snapshot[1].Total)
}

func TestPipelineWithMetrics(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"withdrawal,1,2,9.0", // insufficient funds
	}, "\n")

	m := metrics.New(metrics.DefaultConfig())
	snapshot := runCSV(t, input, WithMetrics(m))
	assert.Len(t, snapshot, 1)
}
