package service

import "sync"

// keyedMutex serializes work per conversation id so concurrent transcript
// appends cannot lose updates. Entries are refcounted and released when
// the last holder unlocks.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[uint]*kmEntry
}

type kmEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[uint]*kmEntry)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key uint) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &kmEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
