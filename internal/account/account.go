// Package account defines the per-client account balance record.
package account

import (
	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/fixedpoint"
)

// Account holds the balance state for one client. Invariant at all times:
// Total == Available + Held. Mutated only by the ledger state machine, one
// transaction at a time, and never deleted during a run.
type Account struct {
	ID        transaction.ClientID `json:"id"`
	Available fixedpoint.Amount    `json:"available"`
	Held      fixedpoint.Amount    `json:"held"`
	Total     fixedpoint.Amount    `json:"total"`
	Locked    bool                 `json:"locked"`
}

// New returns a fresh account for the given client with zero balances.
func New(id transaction.ClientID) Account {
	return Account{ID: id}
}

// Consistent reports whether the balance invariant holds.
func (a Account) Consistent() bool {
	return a.Total == a.Available+a.Held && a.Available >= 0 && a.Held >= 0
}
