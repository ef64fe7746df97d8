package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleflow/settleflow/internal/account"
	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/fixedpoint"
)

func TestWriteCSV(t *testing.T) {
	accounts := map[transaction.ClientID]account.Account{
		2: {ID: 2, Available: 20000, Held: 0, Total: 20000, Locked: false},
		1: {ID: 1, Available: 0, Held: 5000, Total: 5000, Locked: true},
	}

	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, accounts))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,available,held,total,locked", lines[0])
	// ordered by client id
	assert.Equal(t, "1,0.0000,0.5000,0.5000,true", lines[1])
	assert.Equal(t, "2,2.0000,0.0000,2.0000,false", lines[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, nil))
	assert.Equal(t, "id,available,held,total,locked", strings.TrimSpace(sb.String()))
}

func TestWriteCSVFourDecimalPlaces(t *testing.T) {
	accounts := map[transaction.ClientID]account.Account{
		7: {ID: 7, Available: fixedpoint.Amount(12345), Total: fixedpoint.Amount(12345)},
	}

	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, accounts))
	assert.Contains(t, sb.String(), "7,1.2345,0.0000,1.2345,false")
}
