// Package lock provides per-key in-process locking, used to serialise one
// player's pulls.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLockTimeout means a key stayed held past the caller's deadline.
var ErrLockTimeout = errors.New("timed out waiting for key lock")

// keyMutex is a one-slot semaphore with a reference count so idle keys can be
// dropped from the map.
type keyMutex struct {
	sem  chan struct{}
	refs int
}

// KeyedLock hands out one mutex per key. Entries are removed once no goroutine
// holds or waits for them.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[int64]*keyMutex
}

// NewKeyedLock creates a new KeyedLock instance.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[int64]*keyMutex)}
}

func (kl *KeyedLock) acquireRef(key int64) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	m, ok := kl.locks[key]
	if !ok {
		m = &keyMutex{sem: make(chan struct{}, 1)}
		kl.locks[key] = m
	}
	m.refs++
	return m
}

func (kl *KeyedLock) releaseRef(key int64, m *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(kl.locks, key)
	}
}

// Lock blocks until the key is held or ctx is done.
func (kl *KeyedLock) Lock(ctx context.Context, key int64) error {
	m := kl.acquireRef(key)
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.releaseRef(key, m)
		return fmt.Errorf("%w: key %d: %v", ErrLockTimeout, key, ctx.Err())
	}
}

// TryLock acquires the key only if it is free.
func (kl *KeyedLock) TryLock(key int64) bool {
	m := kl.acquireRef(key)
	select {
	case m.sem <- struct{}{}:
		return true
	default:
		kl.releaseRef(key, m)
		return false
	}
}

// Unlock releases a key held by Lock or TryLock.
func (kl *KeyedLock) Unlock(key int64) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("lock: unlock of unlocked key %d", key))
	}
	<-m.sem
	kl.releaseRef(key, m)
}

// WithLock runs fn while holding key. A non-positive timeout waits as long as
// ctx allows.
func (kl *KeyedLock) WithLock(ctx context.Context, key int64, timeout time.Duration, fn func() error) error {
	lockCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := kl.Lock(lockCtx, key); err != nil {
		return err
	}
	defer kl.Unlock(key)
	return fn()
}

// Len returns the number of keys currently held or waited on.
func (kl *KeyedLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
