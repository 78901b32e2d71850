// Package lock serialises assignment generation runs.
//
// A generation rewrites every participant's recipient, so two concurrent
// runs would interleave their writes. Callers acquire the generation key
// before opening the store transaction and release it afterwards.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockHeld is returned when another holder owns the key
var ErrLockHeld = errors.New("lock is held by another run")

// Locker acquires named, expiring locks
type Locker interface {
	// Acquire takes key for at most ttl. The returned release func is
	// safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// LocalLocker is an in-process Locker for single-instance deployments
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localHold
	now  func() time.Time
	seq  uint64
}

type localHold struct {
	token     uint64
	expiresAt time.Time
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]localHold),
		now:  time.Now,
	}
}

// Acquire takes key unless a live hold exists
func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if hold, ok := l.held[key]; ok && now.Before(hold.expiresAt) {
		return nil, ErrLockHeld
	}

	l.seq++
	token := l.seq
	l.held[key] = localHold{token: token, expiresAt: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// an expired hold may have been taken over
			if hold, ok := l.held[key]; ok && hold.token == token {
				delete(l.held, key)
			}
		})
	}, nil
}
