package txmanager

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestManager_NestedRunsInline(t *testing.T) {
	t.Parallel()

	m := NewManager()
	calls := 0
	err := m.RunInTx(context.Background(), func(ctx context.Context) error {
		calls++
		return m.RunInTx(ctx, func(context.Context) error {
			calls++
			return nil
		})
	})
	if err != nil {
		t.Fatalf("RunInTx err=%v", err)
	}
	if calls != 2 {
		t.Fatalf("calls=%d want 2", calls)
	}
}

func TestManager_PropagatesError(t *testing.T) {
	t.Parallel()

	m := NewManager()
	want := errors.New("boom")
	if err := m.RunInTx(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("err=%v want %v", err, want)
	}
}

func TestManager_Serializes(t *testing.T) {
	t.Parallel()

	m := NewManager()
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		guard   sync.Mutex
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.RunInTx(context.Background(), func(context.Context) error {
				guard.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				guard.Unlock()

				guard.Lock()
				inside--
				guard.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("observed %d concurrent transactions", maxSeen)
	}
}
