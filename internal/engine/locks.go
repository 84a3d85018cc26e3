package engine

import (
	"sync"

	"github.com/google/uuid"
)

// lockTable hands out one mutex per transaction id. Mutations on the same
// transaction serialize; mutations on different transactions proceed in
// parallel - there is deliberately no global lock here.
//
// Entries are reference-counted and removed when the last holder releases,
// so the table does not grow with the lifetime of the process.
type lockTable struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the mutex for id and returns the release function.
func (t *lockTable) Lock(id uuid.UUID) func() {
	t.mu.Lock()
	e, ok := t.locks[id]
	if !ok {
		e = &lockEntry{}
		t.locks[id] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		t.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(t.locks, id)
		}
		t.mu.Unlock()
	}
}
