// Package store persists the CRM state document remotely and on the local
// device.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no document exists for the key.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the remote home of the state document, keyed by user.
type DocumentStore interface {
	// Get returns the stored document for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Upsert inserts or replaces the document for key.
	Upsert(ctx context.Context, key string, doc []byte) error

	// Close releases resources held by the store.
	Close() error
}

// LocalStore is the on-device fallback. Values are serialized documents.
type LocalStore interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key.
	Set(key, value string) error
}

// LocalKey returns the local-device key for a user, e.g.
// "fundraising-crm-anonymous".
func LocalKey(prefix, userID string) string {
	return prefix + "-" + userID
}

// UnsyncedKey returns the local-device key holding a user's document that
// the remote store has not yet accepted.
func UnsyncedKey(prefix, userID string) string {
	return LocalKey(prefix, userID) + "-unsynced"
}
