// Package cache provides a TTL response cache keyed by canonical request text.
// The query builder emits identical text for identical requests, which makes
// ranked responses safely cacheable between index rebuilds.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	addedAt time.Time
}

// Store is an in-memory TTL cache. Purge it after every index rebuild so a
// stale ranking never outlives an index swap.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
}

// NewStore creates a cache with the given TTL and starts its eviction loop.
func NewStore[V any](ttl time.Duration) *Store[V] {
	s := &Store[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
	}

	go s.cleanupLoop()

	return s
}

// Get returns the cached value for key if present and unexpired.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || time.Since(e.addedAt) > s.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value under key.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: value, addedAt: time.Now()}
}

// Purge drops every entry.
func (s *Store[V]) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry[V])
}

// Len returns the number of live entries, expired ones included until the
// next cleanup pass.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cleanupLoop periodically removes expired entries.
func (s *Store[V]) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.cleanup()
	}
}

func (s *Store[V]) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.Sub(e.addedAt) > s.ttl {
			delete(s.entries, key)
		}
	}
}
