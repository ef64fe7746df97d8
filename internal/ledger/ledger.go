// Package ledger implements the account transaction state machine: the
// rules that translate each transaction type into balance mutations,
// including the dispute/resolve/chargeback lifecycle.
//
// Dispute-family transactions carry no amount of their own; the amount is
// always re-derived from the referenced deposit or withdrawal, which is
// the single source of truth for how much money was involved. Every
// hold/release/chargeback amount is clamped to the balance the account can
// actually cover, so an inconsistent input stream (e.g. a deposit partly
// withdrawn before being disputed) can never drive a balance negative.
package ledger

import (
	"context"

	"github.com/settleflow/settleflow/internal/account"
	"github.com/settleflow/settleflow/internal/storage"
	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/errors"
	"github.com/settleflow/settleflow/pkg/fixedpoint"
)

// AccountStore maps clients to their account state.
type AccountStore = storage.Store[transaction.ClientID, account.Account]

// TransactionStore is the ledger of deposits and withdrawals, looked up by
// dispute-family transactions.
type TransactionStore = storage.Store[transaction.TransactionID, transaction.Transaction]

// Manager applies transactions to accounts. It consumes one transaction at
// a time and mutates exactly one account per call.
type Manager struct {
	accounts AccountStore
	ledger   TransactionStore
}

// NewManager creates a state machine over the given stores.
func NewManager(accounts AccountStore, ledger TransactionStore) *Manager {
	return &Manager{
		accounts: accounts,
		ledger:   ledger,
	}
}

// Record persists a transaction into the ledger store so a later dispute
// can find it. Only deposits and withdrawals are recorded; the dispute
// family is never itself disputable.
func (m *Manager) Record(ctx context.Context, tx transaction.Transaction) error {
	if !tx.Type.Monetary() {
		return nil
	}
	if err := m.ledger.Set(ctx, tx.ID, tx); err != nil {
		return errors.LedgerWrap(err, errors.OpProcess, "failed to record transaction")
	}
	return nil
}

// Process applies one transaction to the account identified by tx.Client.
//
// Failure semantics: ErrAccountLocked, ErrInsufficientFunds and ErrNotFound
// abort processing of this one transaction with no balance mutation. On
// every non-error path the mutated account is persisted exactly once,
// after dispatch.
func (m *Manager) Process(ctx context.Context, tx transaction.Transaction) error {
	acct, err := m.loadOrCreate(ctx, tx.Client)
	if err != nil {
		return err
	}

	// A locked account rejects all five transaction types, including
	// disputes arriving after the lock.
	if acct.Locked {
		return errors.NewLedgerError(errors.LedgerErrAccountLocked,
			errors.Sprintf("account %d is locked", tx.Client), errors.ErrAccountLocked)
	}

	switch tx.Type {
	case transaction.Deposit:
		if tx.Amount != nil {
			acct.Available += *tx.Amount
			acct.Total += *tx.Amount
		}

	case transaction.Withdrawal:
		if tx.Amount != nil {
			if *tx.Amount > acct.Available {
				return errors.NewLedgerError(errors.LedgerErrInsufficientFunds,
					errors.Sprintf("withdrawal %d exceeds available balance of account %d", tx.ID, tx.Client),
					errors.ErrInsufficientFunds)
			}
			acct.Available -= *tx.Amount
			acct.Total -= *tx.Amount
		}

	case transaction.Dispute:
		ref, err := m.lookup(ctx, tx.ID)
		if err != nil {
			return err
		}
		if ref.Type == transaction.Deposit && ref.Amount != nil {
			// Hold back no more than the account still has available.
			held := fixedpoint.Min(*ref.Amount, acct.Available)
			acct.Held += held
			acct.Available -= held
		}
		// A disputed withdrawal has no balance effect; the money already
		// left the system.

	case transaction.Resolve:
		ref, err := m.lookup(ctx, tx.ID)
		if err != nil {
			return err
		}
		if ref.Type == transaction.Deposit && ref.Amount != nil {
			release := fixedpoint.Min(*ref.Amount, acct.Held)
			acct.Held -= release
			acct.Available += release
		}

	case transaction.Chargeback:
		ref, err := m.lookup(ctx, tx.ID)
		if err != nil {
			return err
		}
		if ref.Amount != nil {
			switch ref.Type {
			case transaction.Deposit:
				take := fixedpoint.Min(*ref.Amount, acct.Held)
				acct.Held -= take
				acct.Total -= take
				acct.Locked = true
			case transaction.Withdrawal:
				// Reverse the withdrawal. The account holder is the
				// wronged party here, so the account is not locked.
				acct.Available += *ref.Amount
				acct.Total += *ref.Amount
			}
		}

	default:
		return errors.LedgerErrorf(errors.LedgerErrInvalidType,
			"unknown transaction type %q", tx.Type)
	}

	if err := m.accounts.Set(ctx, acct.ID, acct); err != nil {
		return errors.NewLedgerError(errors.LedgerErrPersistFailed,
			errors.Sprintf("failed to persist account %d", acct.ID), err)
	}
	return nil
}

// Accounts drains the account store. Called once, after the input stream
// is exhausted, to emit final balances.
func (m *Manager) Accounts(ctx context.Context) (map[transaction.ClientID]account.Account, error) {
	accounts, err := m.accounts.All(ctx)
	if err != nil {
		return nil, errors.LedgerWrap(err, errors.OpDrainAccounts, "failed to drain accounts")
	}
	return accounts, nil
}

// loadOrCreate fetches the account for a client, lazily creating and
// persisting a zeroed account on first reference.
func (m *Manager) loadOrCreate(ctx context.Context, client transaction.ClientID) (account.Account, error) {
	acct, err := m.accounts.Get(ctx, client)
	if err == nil {
		return acct, nil
	}
	if !storage.IsNotFound(err) {
		return account.Account{}, errors.LedgerWrap(err, errors.OpLoadAccount,
			errors.Sprintf("failed to load account %d", client))
	}

	acct = account.New(client)
	if err := m.accounts.Set(ctx, client, acct); err != nil {
		return account.Account{}, errors.LedgerWrap(err, errors.OpLoadAccount,
			errors.Sprintf("failed to create account %d", client))
	}
	return acct, nil
}

// lookup resolves a dispute-family reference to its recorded transaction.
func (m *Manager) lookup(ctx context.Context, id transaction.TransactionID) (transaction.Transaction, error) {
	ref, err := m.ledger.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return transaction.Transaction{}, errors.NewLedgerError(errors.LedgerErrTxNotFound,
				errors.Sprintf("referenced transaction %d not found", id), errors.ErrNotFound)
		}
		return transaction.Transaction{}, errors.LedgerWrap(err, errors.OpLookupTx,
			errors.Sprintf("failed to look up transaction %d", id))
	}
	return ref, nil
}
