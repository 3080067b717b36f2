// Package caching provides application-wide caching and related utilities.
package caching

import "sync"

// WarmingLock ensures only one rebuild or cache warming task runs for a given
// key at a time.
type WarmingLock struct {
	mu    sync.Mutex
	locks map[string]struct{}
}

// NewWarmingLock creates a new instance of a WarmingLock.
func NewWarmingLock() *WarmingLock {
	return &WarmingLock{locks: make(map[string]struct{})}
}

// TryLock acquires the lock for key without blocking. It reports false when
// the lock is already held.
func (l *WarmingLock) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.locks[key]; held {
		return false
	}
	l.locks[key] = struct{}{}
	return true
}

// Unlock releases the lock for key.
func (l *WarmingLock) Unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, key)
}

// Held reports whether key is currently locked.
func (l *WarmingLock) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.locks[key]
	return held
}
