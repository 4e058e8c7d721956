package service

import (
	"sync"
	"testing"
	"time"
)

func TestTicketLocksSerializePerID(t *testing.T) {
	locks := NewTicketLocks()

	const workers = 50
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("t-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
	if len(locks.locks) != 0 {
		t.Errorf("lock table holds %d entries after release, want 0", len(locks.locks))
	}
}

func TestTicketLocksIndependentIDs(t *testing.T) {
	locks := NewTicketLocks()

	unlockA := locks.Lock("t-a")
	defer unlockA()

	// A different ticket's lock must be acquirable while t-a is held.
	acquired := make(chan struct{})
	go func() {
		unlockB := locks.Lock("t-b")
		close(acquired)
		unlockB()
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock for a different ticket blocked")
	}
}
