// Package report renders the final account snapshot. It is the output
// collaborator: it drains the account store once, after the pipeline has
// finished, and converts internal fixed-point amounts back to decimal
// form.
package report

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/settleflow/settleflow/internal/account"
	"github.com/settleflow/settleflow/internal/transaction"
)

var header = []string{"id", "available", "held", "total", "locked"}

// WriteCSV writes the account snapshot as CSV, ordered by client ID so the
// output is deterministic.
func WriteCSV(w io.Writer, accounts map[transaction.ClientID]account.Account) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return err
	}

	ids := make([]transaction.ClientID, 0, len(accounts))
	for id := range accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		acct := accounts[id]
		record := []string{
			strconv.FormatUint(uint64(acct.ID), 10),
			acct.Available.String(),
			acct.Held.String(),
			acct.Total.String(),
			strconv.FormatBool(acct.Locked),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
