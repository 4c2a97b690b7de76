package state

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, session, key string) (string, bool, error) {
	if err := validate(session, key); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sessions[session][key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, session, key, value string) error {
	if err := validate(session, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	values, ok := m.sessions[session]
	if !ok {
		values = make(map[string]string)
		m.sessions[session] = values
	}
	values[key] = value
	return nil
}

func (m *MemoryStore) Update(_ context.Context, session, key string, fn UpdateFunc) error {
	if err := validate(session, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[session][key]
	next, err := fn(current, ok)
	if err != nil {
		return err
	}
	values, exists := m.sessions[session]
	if !exists {
		values = make(map[string]string)
		m.sessions[session] = values
	}
	values[key] = next
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, session, key string) error {
	if err := validate(session, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions[session], key)
	if len(m.sessions[session]) == 0 {
		delete(m.sessions, session)
	}
	return nil
}

func (m *MemoryStore) Has(ctx context.Context, session, key string) (bool, error) {
	_, ok, err := m.Get(ctx, session, key)
	return ok, err
}
