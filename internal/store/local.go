package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockTimeout       = 3 * time.Second
	lockRetryInterval = 50 * time.Millisecond
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileLocalStore writes each key to <dir>/<key>.json. Writes go to a temp
// file that is renamed into place while a cross-process lock is held.
type FileLocalStore struct {
	mu   sync.Mutex
	dir  string
	lock *flock.Flock
}

// NewFileLocalStore creates dir if needed and returns a store rooted there.
func NewFileLocalStore(dir string) (*FileLocalStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating local store directory: %w", err)
	}
	return &FileLocalStore{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

// Dir returns the directory backing the store.
func (f *FileLocalStore) Dir() string { return f.dir }

func (f *FileLocalStore) path(key string) string {
	return filepath.Join(f.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

func (f *FileLocalStore) withLock(fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := f.lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquiring local store lock: %w", err)
	}
	if !locked {
		return errors.New("could not acquire local store lock")
	}
	defer func() { _ = f.lock.Unlock() }()
	return fn()
}

// Get returns the value stored under key.
func (f *FileLocalStore) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := f.withLock(func() error {
		data, err := os.ReadFile(f.path(key))
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", key, err)
		}
		value, found = string(data), true
		return nil
	})
	return value, found, err
}

// Set atomically replaces the value stored under key.
func (f *FileLocalStore) Set(key, value string) error {
	return f.withLock(func() error {
		tmp, err := os.CreateTemp(f.dir, ".tmp-*")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpName := tmp.Name()
		defer func() { _ = os.Remove(tmpName) }()

		if _, err := tmp.WriteString(value); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("writing %s: %w", key, err)
		}
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("syncing %s: %w", key, err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", key, err)
		}
		if err := os.Rename(tmpName, f.path(key)); err != nil {
			return fmt.Errorf("replacing %s: %w", key, err)
		}
		return nil
	})
}
