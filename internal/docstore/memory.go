package docstore

import (
	"context"
	"sync"
)

// Memory is a process-local Store.
type Memory struct {
	mu         sync.RWMutex
	docs       map[string][]byte
	counters   map[string]int64
	failWrites error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string][]byte),
		counters: make(map[string]int64),
	}
}

// FailWrites makes every subsequent write return err; nil restores normal
// behaviour.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	m.failWrites = err
	m.mu.Unlock()
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.docs[key] = v
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	delete(m.docs, key)
	delete(m.counters, key)
	return nil
}

func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return 0, m.failWrites
	}
	m.counters[key]++
	return m.counters[key], nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
