package tokenstore

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Store backed by go-cache.
type Memory struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewMemory creates a Memory store that purges expired entries every minute.
func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (m *Memory) Put(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Set(key, value, ttl)
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *Memory) Take(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	m.c.Delete(key)
	s, _ := v.(string)
	return s, nil
}

func (m *Memory) TakeIf(_ context.Context, key, want string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(key)
	if !ok {
		return ErrNotFound
	}
	if s, _ := v.(string); s != want {
		return ErrNotFound
	}
	m.c.Delete(key)
	return nil
}

func (m *Memory) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.c.IncrementInt64(key, 1)
	if err != nil {
		// missing or expired
		m.c.Set(key, int64(1), ttl)
		return 1, nil
	}
	return n, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Delete(key)
	return nil
}
