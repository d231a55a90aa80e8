package keylock

import (
	"sort"
	"sync"
)

// KeyLock provides an exclusive critical section per key. Every balance
// read-modify-write in the engine runs under the lock for the account id, so
// concurrent mutations against the same account are serialized.
type KeyLock struct {
	mu    sync.Mutex
	locks map[uint]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates a new KeyLock
func New() *KeyLock {
	return &KeyLock{
		locks: make(map[uint]*entry),
	}
}

// Lock acquires the exclusive lock for key, blocking until it is free.
func (k *KeyLock) Lock(key uint) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key. The entry is dropped once no goroutine
// holds or waits on it.
func (k *KeyLock) Unlock(key uint) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if ok {
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}

// LockAll acquires locks for all keys in ascending order so that two
// transfers touching the same pair of accounts cannot deadlock.
func (k *KeyLock) LockAll(keys ...uint) {
	sorted := dedupSorted(keys)
	for _, key := range sorted {
		k.Lock(key)
	}
}

// UnlockAll releases locks taken by LockAll.
func (k *KeyLock) UnlockAll(keys ...uint) {
	sorted := dedupSorted(keys)
	for i := len(sorted) - 1; i >= 0; i-- {
		k.Unlock(sorted[i])
	}
}

func dedupSorted(keys []uint) []uint {
	sorted := make([]uint, 0, len(keys))
	seen := make(map[uint]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			sorted = append(sorted, key)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}
