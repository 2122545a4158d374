package store

import (
	"context"
	"sync"
)

// MockStore is an in-memory implementation of DocumentStore for testing.
// Failures can be injected with FailNext and FailGets.
type MockStore struct {
	mu       sync.RWMutex
	docs     map[string][]byte
	failNext []error
	getErr   error
	upserts  int
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{docs: make(map[string][]byte)}
}

// Get returns a copy of the stored document.
func (m *MockStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), doc...), nil
}

// Upsert stores a copy of doc, unless a queued failure is pending.
func (m *MockStore) Upsert(_ context.Context, key string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if len(m.failNext) > 0 {
		err := m.failNext[0]
		m.failNext = m.failNext[1:]
		return err
	}
	m.docs[key] = append([]byte(nil), doc...)
	return nil
}

// Close is a no-op.
func (m *MockStore) Close() error { return nil }

// FailNext queues errors returned by the next len(errs) Upsert calls.
func (m *MockStore) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = append(m.failNext, errs...)
}

// FailGets makes every Get return err. A nil err restores normal reads.
func (m *MockStore) FailGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// Upserts returns the number of Upsert calls, failed ones included.
func (m *MockStore) Upserts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserts
}

// Seed stores doc under key without counting an upsert.
func (m *MockStore) Seed(key string, doc []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), doc...)
}

// MemoryLocalStore is an in-memory LocalStore.
type MemoryLocalStore struct {
	mu     sync.RWMutex
	values map[string]string
	setErr error
	sets   int
}

// NewMemoryLocalStore returns an empty MemoryLocalStore.
func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{values: make(map[string]string)}
}

// Get returns the value stored under key and whether it was present.
func (m *MemoryLocalStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set stores value under key, unless FailSets injected an error.
func (m *MemoryLocalStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

// FailSets makes every Set return err. A nil err restores normal writes.
func (m *MemoryLocalStore) FailSets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

// Sets returns the number of Set calls.
func (m *MemoryLocalStore) Sets() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}
