// Package storage provides the key-value store abstraction backing the
// account table and the transaction ledger. The contract is deliberately
// minimal: point reads, point writes, and a single full drain used once at
// shutdown. A durable implementation must honor the same contract with no
// visible behavioral difference to the state machine.
package storage

import (
	"context"

	"github.com/settleflow/settleflow/pkg/errors"
)

// Key constrains store keys to the integer identifier types used by the
// engine, so alternate backends can render them as stable string keys.
type Key interface {
	~uint16 | ~uint32
}

// Store is a minimal associative store. Get returns errors.ErrNotFound
// (possibly wrapped) when the key is absent. No deletion, no range
// queries, no cross-key transactions.
type Store[K Key, V any] interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key K) (V, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key K, value V) error

	// All returns a snapshot of every stored entry. Used once, at
	// shutdown, to drain the final state.
	All(ctx context.Context) (map[K]V, error)
}

// IsNotFound reports whether err represents a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.ErrNotFound)
}
