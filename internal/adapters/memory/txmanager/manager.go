package txmanager

import (
	"context"
	"sync"
)

type txKey struct{}

// Manager serializes transactions over the in-memory repositories.
//
// It provides isolation only: writes made before fn fails are not rolled back.
// Nested RunInTx calls carrying the transaction context run inline.
type Manager struct {
	mu sync.Mutex
}

func NewManager() *Manager { return &Manager{} }

func (m *Manager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bool); ok {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}
