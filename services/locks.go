package services

import (
	"sync"
)

// lockTable hands out one mutex per event so every mutation touching a given
// aggregate (participant counts, lifecycle flags, leaderboard recomputation)
// is serialized through a per-event exclusive scope instead of a global lock.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the mutex for eventID and returns the unlock func.
func (t *lockTable) Acquire(eventID string) func() {
	t.mu.Lock()
	l, ok := t.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[eventID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// eventLocks is shared by every service in the package; the reminder
// scheduler deliberately does not use it.
var eventLocks = newLockTable()
