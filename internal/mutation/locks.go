package mutation

import (
	"sync"

	"github.com/google/uuid"
)

// entityLocks provides per-entity mutual exclusion so the load → diff →
// persist sequence never interleaves for one entity. Locks are created on
// demand and reclaimed when the last holder releases, so the map stays
// proportional to in-flight mutations, not to the entity population.
type entityLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{held: make(map[uuid.UUID]*entityLock)}
}

// lock blocks until the entity's lock is acquired and returns the release
// function.
func (l *entityLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.held[id]
	if !ok {
		entry = &entityLock{}
		l.held[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
