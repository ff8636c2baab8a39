package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps windows in a process-local map.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]window
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]window)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, length time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = window{count: 1, resetAt: now.Add(length)}
	} else {
		w.count++
	}
	s.windows[key] = w

	return w.count, w.resetAt, nil
}

// Sweep evicts windows that ended before now and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked windows.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}
