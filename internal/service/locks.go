package service

import "sync"

// TicketLocks serializes work per ticket id. Holding a ticket's lock across
// commit and event publication keeps fan-out delivery in commit order;
// different tickets proceed in full parallel.
type TicketLocks struct {
	mu    sync.Mutex
	locks map[string]*ticketLock
}

type ticketLock struct {
	mu   sync.Mutex
	refs int
}

// NewTicketLocks creates the lock table.
func NewTicketLocks() *TicketLocks {
	return &TicketLocks{locks: make(map[string]*ticketLock)}
}

// Lock acquires the lock for the ticket id and returns its release func.
func (t *TicketLocks) Lock(id string) func() {
	t.mu.Lock()
	entry, ok := t.locks[id]
	if !ok {
		entry = &ticketLock{}
		t.locks[id] = entry
	}
	entry.refs++
	t.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		t.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(t.locks, id)
		}
		t.mu.Unlock()
	}
}
