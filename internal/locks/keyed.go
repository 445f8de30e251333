// Package locks provides an arena of per-key mutexes. The stream engine
// and ticket service use one arena keyed by ticket ID so that sequence
// assignment and status transitions serialize per ticket while distinct
// tickets proceed in parallel.
package locks

import (
	"sync"

	"github.com/google/uuid"
)

type entry struct {
	mu sync.Mutex
	// refs counts holders plus waiters. The entry is removed from the
	// arena when it drops to zero, so idle tickets cost nothing.
	refs int
}

// KeyedMutex hands out one mutex per ticket ID, created on demand and
// garbage-collected when idle. The zero value is not usable; call New.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[uuid.UUID]*entry)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (k *KeyedMutex) Lock(key uuid.UUID) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key and drops the entry once no goroutine
// holds or waits on it. Unlocking a key that was never locked panics, the
// same as sync.Mutex.
func (k *KeyedMutex) Unlock(key uuid.UUID) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("locks: unlock of unlocked key " + key.String())
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// Len reports the number of live entries. Test hook for verifying that
// idle entries are collected.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
