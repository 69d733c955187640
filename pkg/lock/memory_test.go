package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "exec-1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "exec-1")
	assert.ErrorIs(t, err, ErrAlreadyLocked)

	// A different key is independent.
	other, err := l.Acquire(ctx, "exec-2")
	require.NoError(t, err)
	other()

	release()

	release2, err := l.Acquire(ctx, "exec-1")
	require.NoError(t, err)
	release2()
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "exec-1")
	require.NoError(t, err)

	release()
	release()

	// Double release must not free a lock taken by someone else.
	again, err := l.Acquire(ctx, "exec-1")
	require.NoError(t, err)

	release()

	_, err = l.Acquire(ctx, "exec-1")
	assert.ErrorIs(t, err, ErrAlreadyLocked)

	again()
}
