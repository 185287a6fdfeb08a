package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Redis lock: SET key value NX EX ttl to acquire, and a compare-and-delete
// script to release so an expired holder cannot drop somebody else's lock.

var (
	ErrLockFailed   = errors.New("could not acquire distributed lock")
	ErrLockNotOwned = errors.New("lock is no longer held by this owner")
)

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // owner token
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock makes a single non-blocking attempt.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock retries TryLock every retryInterval until it succeeds, maxRetries is
// exhausted or ctx is done.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

func (l *DistributedLock) Unlock(ctx context.Context) error {
	n, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// DebtKey is the lock key guarding payments on one debt.
func DebtKey(debtID int64) string {
	return fmt.Sprintf("ledger:lock:debt:%d", debtID)
}

// NewDebtLock creates the per-debt payment lock. Payments on different debts
// never contend.
func NewDebtLock(client *redis.Client, debtID int64, ttl time.Duration) *DistributedLock {
	return NewDistributedLock(client, DebtKey(debtID), uuid.NewString(), ttl)
}

const retryInterval = 50 * time.Millisecond

// RedisLocker hands out per-debt locks backed by Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

// LockDebt blocks until the debt lock is held, for at most one TTL.
func (r *RedisLocker) LockDebt(ctx context.Context, debtID int64) (func(), error) {
	l := NewDebtLock(r.client, debtID, r.ttl)
	maxRetries := int(r.ttl/retryInterval) + 1
	if err := l.Lock(ctx, retryInterval, maxRetries); err != nil {
		return nil, fmt.Errorf("lock debt %d: %w", debtID, err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.Unlock(ctx); err != nil {
			logUnlockFailure(debtID, err)
		}
	}, nil
}
