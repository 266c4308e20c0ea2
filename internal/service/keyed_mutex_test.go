package service

import (
	"fmt"
	"sync"
	"testing"
)

func TestKeyedMutexReleasesEntries(t *testing.T) {
	km := newKeyedMutex()

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("session-%d", i)
		km.Lock(key)
		km.Unlock(key)
	}

	if got := km.size(); got != 0 {
		t.Fatalf("expected empty lock map after all unlocks, got %d entries", got)
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("shared")
			counter++
			km.Unlock("shared")
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
	if got := km.size(); got != 0 {
		t.Fatalf("expected empty lock map after contention drains, got %d entries", got)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	km.Lock("a")
	done := make(chan struct{})
	go func() {
		// A different key must not block behind "a".
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
	km.Unlock("a")

	if got := km.size(); got != 0 {
		t.Fatalf("expected empty lock map, got %d entries", got)
	}
}
