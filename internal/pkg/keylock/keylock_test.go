package keylock

import (
	"sync"
	"testing"
	"time"
)

func TestLockSerializesSameKey(t *testing.T) {
	k := New()

	const workers = 50
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock(1)
			defer k.Unlock(1)
			// Unsynchronized read-modify-write; only the key lock protects it
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	k := New()
	k.Lock(1)
	defer k.Unlock(1)

	done := make(chan struct{})
	go func() {
		k.Lock(2)
		k.Unlock(2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestEntriesAreReleased(t *testing.T) {
	k := New()

	k.Lock(1)
	k.Unlock(1)
	k.LockAll(2, 3)
	k.UnlockAll(2, 3)

	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.locks) != 0 {
		t.Errorf("lock table still holds %d entries", len(k.locks))
	}
}

func TestLockAllOpposingOrders(t *testing.T) {
	k := New()

	// Two goroutines lock the same pair given in opposite order. Ordered
	// acquisition means this cannot deadlock.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			k.LockAll(1, 2)
			k.UnlockAll(1, 2)
		}()
		go func() {
			defer wg.Done()
			k.LockAll(2, 1)
			k.UnlockAll(2, 1)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposing lock orders deadlocked")
	}
}

func TestLockAllDeduplicatesKeys(t *testing.T) {
	k := New()

	done := make(chan struct{})
	go func() {
		k.LockAll(7, 7, 7)
		k.UnlockAll(7, 7, 7)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("duplicate keys self-deadlocked")
	}
}
