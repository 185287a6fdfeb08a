package lock

import (
	"context"
	"log"
	"sync"
)

type localEntry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker serializes work per debt inside one process. It is used when
// Redis is not configured.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[int64]*localEntry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{entries: make(map[int64]*localEntry)}
}

func (l *LocalLocker) LockDebt(ctx context.Context, debtID int64) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[debtID]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[debtID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(debtID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(debtID, e)
		})
	}, nil
}

func (l *LocalLocker) release(debtID int64, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, debtID)
	}
}

func logUnlockFailure(debtID int64, err error) {
	log.Printf("[lock] release debt lock failed: debtID=%d, err=%v", debtID, err)
}
