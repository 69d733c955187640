package lock

import (
	"context"
	"sync"
)

// MemoryLocker is an in-process KeyedLocker for single-worker deployments
// and tests.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewMemoryLocker creates an in-memory keyed locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]bool)}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, ErrAlreadyLocked
	}

	l.held[key] = true

	var once sync.Once

	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
