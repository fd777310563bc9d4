package revocation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	reg := NewMemory(clock.Now)

	require.NoError(t, reg.Revoke(ctx, "tid-1", time.Hour))
	require.NoError(t, reg.Revoke(ctx, "tid-1", time.Hour))

	revoked, err := reg.IsRevoked(ctx, "tid-1")
	require.NoError(t, err)
	require.True(t, revoked)

	n, err := reg.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestMemoryEntriesExpire(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	reg := NewMemory(clock.Now)

	require.NoError(t, reg.Revoke(ctx, "short", time.Minute))
	require.NoError(t, reg.Revoke(ctx, "long", time.Hour))

	clock.Advance(2 * time.Minute)

	revoked, err := reg.IsRevoked(ctx, "short")
	require.NoError(t, err)
	require.False(t, revoked, "expired entry must read as absent")

	n, err := reg.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 2, reg.Len(), "expired entry stays until swept")

	removed, err := reg.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, 1, reg.Len())

	revoked, err = reg.IsRevoked(ctx, "long")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestMemoryRevokeKeepsLaterDeadline(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	reg := NewMemory(clock.Now)

	require.NoError(t, reg.Revoke(ctx, "tid", time.Hour))
	require.NoError(t, reg.Revoke(ctx, "tid", time.Minute))

	clock.Advance(10 * time.Minute)
	revoked, err := reg.IsRevoked(ctx, "tid")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestMemoryRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory(nil)

	require.ErrorIs(t, reg.Revoke(ctx, "", time.Hour), ErrEmptyTokenID)
	require.ErrorIs(t, reg.Revoke(ctx, "tid", 0), ErrInvalidTTL)

	revoked, err := reg.IsRevoked(ctx, "")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryConcurrentRevokeAndRead(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory(nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = reg.Revoke(ctx, "shared", time.Hour)
				_, _ = reg.IsRevoked(ctx, "shared")
				_, _ = reg.Count(ctx)
			}
		}()
	}
	wg.Wait()

	n, err := reg.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
