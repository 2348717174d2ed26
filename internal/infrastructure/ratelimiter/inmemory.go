package ratelimiter

import (
	"sync"
	"time"
)

const memorySweepInterval = time.Minute

// memoryStore is the default CounterStore: a mutex-guarded map with a
// background sweep for expired counters. Scoped to one broker process; a
// shared store behind CounterStore is what limits across replicas.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	stop     chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	count    int
	deadline time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

func NewMemoryStore() CounterStore {
	s := &memoryStore{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}

	go s.sweep()

	return s
}

func (s *memoryStore) Get(key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(time.Now()) {
		return 0, ErrCacheMiss
	}

	return entry.count, nil
}

func (s *memoryStore) Set(key string, value int) error {
	return s.SetWithExpiration(key, value, 0)
}

func (s *memoryStore) SetWithExpiration(key string, value int, expiration time.Duration) error {
	entry := memoryEntry{count: value}
	if expiration > 0 {
		entry.deadline = time.Now().Add(expiration)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	return nil
}

func (s *memoryStore) sweep() {
	ticker := time.NewTicker(memorySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.dropExpired(time.Now())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) dropExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
		}
	}
}

func (s *memoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
