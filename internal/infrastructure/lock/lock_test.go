package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestDistributedLockExclusive(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	a := NewDebtLock(client, 1, time.Minute)
	b := NewDebtLock(client, 1, time.Minute)

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("ledger:lock:debt:1"))

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, b.Unlock(ctx), ErrLockNotOwned)
	assert.True(t, mr.Exists("ledger:lock:debt:1"))

	require.NoError(t, a.Unlock(ctx))
	assert.False(t, mr.Exists("ledger:lock:debt:1"))
}

func TestDistributedLockExpires(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	a := NewDebtLock(client, 2, time.Second)
	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	b := NewDebtLock(client, 2, time.Second)
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockGivesUpAfterRetries(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()

	holder := NewDebtLock(client, 3, time.Minute)
	ok, err := holder.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	waiter := NewDebtLock(client, 3, time.Minute)
	err = waiter.Lock(ctx, time.Millisecond, 3)
	assert.ErrorIs(t, err, ErrLockFailed)
}

func TestRedisLockerSerializes(t *testing.T) {
	_, client := newRedis(t)
	testLockerSerializes(t, NewRedisLocker(client, 5*time.Second))
}

func TestLocalLockerSerializes(t *testing.T) {
	testLockerSerializes(t, NewLocalLocker())
}

type debtLocker interface {
	LockDebt(ctx context.Context, debtID int64) (func(), error)
}

func testLockerSerializes(t *testing.T, l debtLocker) {
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.LockDebt(context.Background(), 42)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.LockDebt(context.Background(), 5)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.LockDebt(ctx, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()

	other, err := l.LockDebt(context.Background(), 5)
	require.NoError(t, err)
	other()
	assert.Empty(t, l.entries)
}
