package store

import (
	"context"
	"fmt"
	"sync"
)

// DialFunc opens a DocumentStore.
type DialFunc func(ctx context.Context) (DocumentStore, error)

// LazyStore is a DocumentStore that connects on first use. A failed dial is
// returned from the call that triggered it and attempted again on the next
// call, so an unreachable backend surfaces as ordinary read and write errors.
type LazyStore struct {
	name string
	dial DialFunc

	mu    sync.Mutex
	inner DocumentStore
}

// NewLazyStore returns a LazyStore that opens its backend with dial. name
// labels dial errors.
func NewLazyStore(name string, dial DialFunc) *LazyStore {
	return &LazyStore{name: name, dial: dial}
}

// Connect dials the backend unless already connected.
func (l *LazyStore) Connect(ctx context.Context) error {
	_, err := l.conn(ctx)
	return err
}

func (l *LazyStore) conn(ctx context.Context) (DocumentStore, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner != nil {
		return l.inner, nil
	}
	s, err := l.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", l.name, err)
	}
	l.inner = s
	return s, nil
}

// Get returns the document stored under key.
func (l *LazyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s, err := l.conn(ctx)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, key)
}

// Upsert inserts or replaces the document under key.
func (l *LazyStore) Upsert(ctx context.Context, key string, doc []byte) error {
	s, err := l.conn(ctx)
	if err != nil {
		return err
	}
	return s.Upsert(ctx, key, doc)
}

// Close closes the backend if it was ever opened.
func (l *LazyStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner == nil {
		return nil
	}
	err := l.inner.Close()
	l.inner = nil
	return err
}
