package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisRegistryTest(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, ""), mr
}

func TestRedisRevokeAndExpire(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisRegistryTest(t)

	require.NoError(t, reg.Revoke(ctx, "tid-1", time.Minute))
	require.NoError(t, reg.Revoke(ctx, "tid-1", time.Minute))
	require.True(t, mr.Exists(DefaultRedisPrefix+"tid-1"))

	revoked, err := reg.IsRevoked(ctx, "tid-1")
	require.NoError(t, err)
	require.True(t, revoked)

	mr.FastForward(2 * time.Minute)

	revoked, err = reg.IsRevoked(ctx, "tid-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRedisCountScansPrefixOnly(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisRegistryTest(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, reg.Revoke(ctx, id, time.Hour))
	}
	require.NoError(t, mr.Set("unrelated", "x"))

	n, err := reg.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	removed, err := reg.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestCountScanIgnoresRepeatedKeys(t *testing.T) {
	pages := map[uint64]struct {
		keys []string
		next uint64
	}{
		0: {keys: []string{"tg:rv:a", "tg:rv:b"}, next: 7},
		7: {keys: []string{"tg:rv:b", "tg:rv:c"}, next: 3},
		3: {keys: []string{"tg:rv:a"}, next: 0},
	}

	var calls int
	n, err := countScan(context.Background(), func(_ context.Context, cursor uint64) ([]string, uint64, error) {
		calls++
		p := pages[cursor]
		return p.keys, p.next, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 3, calls)
}

func TestRedisSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	a := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})

	require.NoError(t, NewRedis(a, "app:").Revoke(ctx, "tid", time.Hour))

	revoked, err := NewRedis(b, "app:").IsRevoked(ctx, "tid")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestRedisUnavailableIsAnError(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisRegistryTest(t)
	mr.Close()

	_, err := reg.IsRevoked(ctx, "tid")
	require.ErrorIs(t, err, ErrUnavailable)

	require.ErrorIs(t, reg.Revoke(ctx, "tid", time.Hour), ErrUnavailable)
}
