package locks

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_MutualExclusionPerKey(t *testing.T) {
	arena := New()
	key := uuid.New()

	const goroutines = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			arena.Lock(key)
			defer arena.Unlock(key)
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestKeyedMutex_IndependentKeysDoNotBlock(t *testing.T) {
	arena := New()
	a, b := uuid.New(), uuid.New()

	arena.Lock(a)
	// Holding a must not prevent acquiring b.
	done := make(chan struct{})
	go func() {
		arena.Lock(b)
		arena.Unlock(b)
		close(done)
	}()
	<-done
	arena.Unlock(a)
}

func TestKeyedMutex_IdleEntriesAreCollected(t *testing.T) {
	arena := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		key := uuid.New()
		wg.Add(1)
		go func() {
			defer wg.Done()
			arena.Lock(key)
			arena.Unlock(key)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, arena.Len(), "released keys must not linger in the arena")
}

func TestKeyedMutex_UnlockUnknownKeyPanics(t *testing.T) {
	arena := New()
	require.Panics(t, func() { arena.Unlock(uuid.New()) })
}
