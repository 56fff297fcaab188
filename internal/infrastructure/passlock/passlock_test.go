package passlock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"dkp_bot/internal/infrastructure/passlock"
)

const lockKey = "dkp:pass-lock"

func newLocker(t *testing.T, ttl time.Duration) (*passlock.Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return passlock.New(client, lockKey, ttl), mr
}

func TestLockerAcquireRelease(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	locker, mr := newLocker(t, time.Minute)

	lease, err := locker.Acquire(ctx)
	rq.NoError(err)
	rq.True(mr.Exists(lockKey))
	rq.Equal(time.Minute, mr.TTL(lockKey))

	_, err = locker.Acquire(ctx)
	rq.ErrorIs(err, passlock.ErrNotAcquired)

	rq.NoError(lease.Release(ctx))
	rq.False(mr.Exists(lockKey))

	lease, err = locker.Acquire(ctx)
	rq.NoError(err)
	rq.NoError(lease.Release(ctx))
}

func TestLockerExpiredLease(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	locker, mr := newLocker(t, time.Minute)

	stale, err := locker.Acquire(ctx)
	rq.NoError(err)

	mr.FastForward(2 * time.Minute)

	fresh, err := locker.Acquire(ctx)
	rq.NoError(err)

	// Просроченная аренда не снимает чужую блокировку.
	rq.ErrorIs(stale.Release(ctx), passlock.ErrLeaseLost)
	rq.True(mr.Exists(lockKey))

	rq.NoError(fresh.Release(ctx))
	rq.False(mr.Exists(lockKey))
}

func TestLockerRedisDown(t *testing.T) {
	rq := require.New(t)

	locker, mr := newLocker(t, time.Minute)
	mr.Close()

	_, err := locker.Acquire(context.Background())
	rq.Error(err)
	rq.NotErrorIs(err, passlock.ErrNotAcquired)
}
