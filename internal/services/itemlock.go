package services

import (
	"sync"
)

// itemLocks provides per-item mutual exclusion for checks. A check that
// finds its item locked is refused rather than queued: the holder is about
// to produce the same observation anyway, and refusing keeps the
// one-price-per-check invariant under concurrent manual and scheduled runs.
type itemLocks struct {
	mu     sync.Mutex
	locked map[uint]struct{}
}

func newItemLocks() *itemLocks {
	return &itemLocks{locked: make(map[uint]struct{})}
}

// TryLock claims the item, returning false if another check holds it.
func (l *itemLocks) TryLock(id uint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.locked[id]; held {
		return false
	}
	l.locked[id] = struct{}{}
	return true
}

// Unlock releases the item.
func (l *itemLocks) Unlock(id uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locked, id)
}
