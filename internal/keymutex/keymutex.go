// Package keymutex provides per-key mutual exclusion so operations on
// different beneficiaries never contend on a global lock.
package keymutex

import "sync"

// KeyMutex hands out one mutex per key. Mutexes are created on first use
// and retained; the key space is the set of registered beneficiaries, which
// is small and append-only.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyMutex {
	return &KeyMutex{locks: map[string]*sync.Mutex{}}
}

// Lock acquires the mutex for key, creating it if needed.
func (k *KeyMutex) Lock(key string) {
	k.mutexFor(key).Lock()
}

// Unlock releases the mutex for key. Unlocking a never-locked key panics,
// same as sync.Mutex.
func (k *KeyMutex) Unlock(key string) {
	k.mutexFor(key).Unlock()
}

func (k *KeyMutex) mutexFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
