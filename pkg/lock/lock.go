// Package lock provides keyed mutual exclusion. The orchestrator takes a
// per-execution run lock so at most one worker drives a given execution,
// even when the control stream delivers duplicate intents.
package lock

import (
	"context"
	"errors"
)

// ErrAlreadyLocked indicates the key is held by another owner.
var ErrAlreadyLocked = errors.New("lock already held")

// ReleaseFunc releases a held lock. Safe to call more than once.
type ReleaseFunc func()

// KeyedLocker grants exclusive ownership of string keys.
type KeyedLocker interface {
	// Acquire takes the lock for key, failing fast with ErrAlreadyLocked
	// when another owner holds it.
	Acquire(ctx context.Context, key string) (ReleaseFunc, error)
}
