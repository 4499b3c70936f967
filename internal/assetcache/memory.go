package assetcache

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu          sync.RWMutex
	generations map[string]map[string]Entry
}

// NewMemory builds an in-memory cache store.
func NewMemory() Store {
	return &memoryStore{generations: make(map[string]map[string]Entry)}
}

func (s *memoryStore) Match(_ context.Context, generation, url string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.generations[generation][url]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return cloneEntry(e), nil
}

func (s *memoryStore) Put(_ context.Context, generation string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(generation, e)
	return nil
}

func (s *memoryStore) PutAll(_ context.Context, generation string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.putLocked(generation, e)
	}
	return nil
}

func (s *memoryStore) putLocked(generation string, e Entry) {
	gen, ok := s.generations[generation]
	if !ok {
		gen = make(map[string]Entry)
		s.generations[generation] = gen
	}
	gen[e.URL] = cloneEntry(e)
}

func (s *memoryStore) Generations(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.generations))
	for name, entries := range s.generations {
		if len(entries) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *memoryStore) DeleteGeneration(_ context.Context, generation string) error {
	s.mu.Lock()
	delete(s.generations, generation)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Close() error { return nil }

func cloneEntry(e Entry) Entry {
	e.Header = e.Header.Clone()
	e.Body = append([]byte(nil), e.Body...)
	return e
}
