package repositories

import (
	"context"
	"sync"
)

// Snapshotter captures and restores a store's full state. The in-memory
// repositories implement it so MockTxRunner can emulate abort semantics.
type Snapshotter interface {
	Snapshot() interface{}
	Restore(interface{})
}

// MockTxRunner is an in-memory TxRunner. Transactions are serialized under a
// mutex; a failing body restores every registered store to its pre-transaction
// state, so partial writes never survive, mirroring the MongoDB session
// behavior the services rely on.
type MockTxRunner struct {
	mu     sync.Mutex
	stores []Snapshotter
}

// NewMockTxRunner creates a MockTxRunner over the given stores.
func NewMockTxRunner(stores ...Snapshotter) *MockTxRunner {
	return &MockTxRunner{stores: stores}
}

// WithTransaction runs fn atomically with respect to other transactions.
func (t *MockTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshots := make([]interface{}, len(t.stores))
	for i, s := range t.stores {
		snapshots[i] = s.Snapshot()
	}

	if err := fn(ctx); err != nil {
		for i, s := range t.stores {
			s.Restore(snapshots[i])
		}
		return err
	}
	return nil
}
