// Package transaction defines the transaction records flowing through the
// settlement engine.
package transaction

import (
	"encoding/json"
	"fmt"

	"github.com/settleflow/settleflow/pkg/fixedpoint"
)

// ClientID identifies an account. Stable for the process lifetime.
type ClientID uint16

// TransactionID is unique per transaction in the input stream and is the
// ledger key. Dispute-family transactions reuse the ID of the transaction
// they reference.
type TransactionID uint32

// Type defines the type of transaction
type Type string

const (
	// Deposit credits funds to an account
	Deposit Type = "deposit"
	// Withdrawal debits funds from an account
	Withdrawal Type = "withdrawal"
	// Dispute holds back the funds of a referenced deposit
	Dispute Type = "dispute"
	// Resolve releases funds held by a dispute
	Resolve Type = "resolve"
	// Chargeback settles a dispute against the account
	Chargeback Type = "chargeback"
)

// Valid reports whether t is one of the five known transaction types.
func (t Type) Valid() bool {
	switch t {
	case Deposit, Withdrawal, Dispute, Resolve, Chargeback:
		return true
	}
	return false
}

// Monetary reports whether transactions of this type carry their own
// amount. Dispute-family transactions re-derive the amount from the
// transaction they reference.
func (t Type) Monetary() bool {
	return t == Deposit || t == Withdrawal
}

// Transaction represents one record of the input stream. Immutable once
// created; only deposits and withdrawals are persisted into the ledger
// store, because only they can later be disputed.
type Transaction struct {
	Type   Type               `json:"type"`
	Client ClientID           `json:"client"`
	ID     TransactionID      `json:"tx"`
	Amount *fixedpoint.Amount `json:"amount,omitempty"`
}

// New creates a transaction carrying an amount.
func New(txType Type, client ClientID, id TransactionID, amount fixedpoint.Amount) Transaction {
	return Transaction{Type: txType, Client: client, ID: id, Amount: &amount}
}

// NewReference creates an amountless dispute-family transaction that
// references a prior transaction by id.
func NewReference(txType Type, client ClientID, id TransactionID) Transaction {
	return Transaction{Type: txType, Client: client, ID: id}
}

// Validate checks if the transaction is valid
func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", tx.Type)
	}

	if tx.Type.Monetary() {
		if tx.Amount == nil {
			return fmt.Errorf("%s %d is missing an amount", tx.Type, tx.ID)
		}
		if *tx.Amount < 0 {
			return fmt.Errorf("%s %d has negative amount %s", tx.Type, tx.ID, tx.Amount)
		}
	}

	return nil
}

// ToJSON serializes the transaction to JSON
func (tx Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(tx)
}

// FromJSON deserializes a transaction from JSON
func FromJSON(data []byte) (Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return Transaction{}, fmt.Errorf("failed to deserialize transaction: %w", err)
	}
	return tx, nil
}
