package txmanager

import "context"

// Manager runs fn inside a single storage transaction.
//
// Repositories called with the ctx passed to fn participate in that transaction.
// Nested calls join the outer transaction. An error returned by fn rolls it back
// where the backend supports rollback.
type Manager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
