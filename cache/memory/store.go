package memory

import (
	"context"
	"sync"

	"github.com/RevenueCat/purchases-android-sub005/cache"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewInMemory() cache.Store {
	return &InMemoryStore{
		values: map[string]string{},
	}
}

func (s *InMemoryStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string]string)
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	return value, nil
}

func (s *InMemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
