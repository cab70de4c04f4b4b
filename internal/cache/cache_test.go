package cache

import (
	"testing"
	"time"
)

func TestStore_GetSet(t *testing.T) {
	s := NewStore[int](time.Minute)

	if _, ok := s.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}

	s.Set("a", 42)
	v, ok := s.Get("a")
	if !ok || v != 42 {
		t.Errorf("expected hit with 42, got %v, %v", v, ok)
	}
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore[string](10 * time.Millisecond)

	s.Set("a", "x")
	time.Sleep(20 * time.Millisecond)

	if _, ok := s.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestStore_Purge(t *testing.T) {
	s := NewStore[string](time.Minute)

	s.Set("a", "x")
	s.Set("b", "y")
	s.Purge()

	if s.Len() != 0 {
		t.Errorf("expected empty store after purge, got %d entries", s.Len())
	}
	if _, ok := s.Get("a"); ok {
		t.Error("expected miss after purge")
	}
}

func TestStore_Cleanup(t *testing.T) {
	s := NewStore[int](time.Nanosecond)

	s.Set("a", 1)
	time.Sleep(time.Millisecond)
	s.cleanup()

	if s.Len() != 0 {
		t.Errorf("expected cleanup to evict expired entries, got %d", s.Len())
	}
}
