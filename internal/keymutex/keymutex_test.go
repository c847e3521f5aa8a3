package keymutex

import (
	"sync"
	"testing"
)

func TestKeyMutex_SerializesPerKey(t *testing.T) {
	km := New()
	alice, bob := 0, 0
	counters := map[string]*int{"alice": &alice, "bob": &bob}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for key, n := range counters {
			wg.Add(1)
			go func(key string, n *int) {
				defer wg.Done()
				km.Lock(key)
				*n++
				km.Unlock(key)
			}(key, n)
		}
	}
	wg.Wait()
	if alice != 50 || bob != 50 {
		t.Fatalf("lost updates: alice=%d bob=%d", alice, bob)
	}
}

func TestKeyMutex_IndependentKeys(t *testing.T) {
	km := New()
	km.Lock("alice")
	done := make(chan struct{})
	go func() {
		km.Lock("bob")
		km.Unlock("bob")
		close(done)
	}()
	<-done // must not block while alice is held
	km.Unlock("alice")
}
