package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := newKeyedMutex()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(1)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock(7)
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.entries)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := km.Lock(2)
		unlockB()
		close(done)
	}()

	// Key 2 must not block behind key 1.
	<-done
	unlockA()
}
