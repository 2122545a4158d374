package persist

import (
	"context"
	"errors"
)

// ErrIdentityNotReady is returned by Load while the identity provider has not
// settled on a user.
var ErrIdentityNotReady = errors.New("identity not ready")

const anonymousKey = "anonymous"

// Identity is the fact the persistence layer consumes from authentication.
// An empty UserID means the user is anonymous.
type Identity struct {
	UserID string
	Ready  bool
}

// Anonymous reports whether no user is signed in.
func (i Identity) Anonymous() bool { return i.UserID == "" }

// Key is the document key for this identity: the user id, or "anonymous".
func (i Identity) Key() string {
	if i.Anonymous() {
		return anonymousKey
	}
	return i.UserID
}

// IdentityResolver reports the current identity.
type IdentityResolver interface {
	Identity(ctx context.Context) (Identity, error)
}

// StaticIdentity is an always-ready identity taken from configuration.
type StaticIdentity struct {
	UserID string
}

// Identity returns the configured user.
func (s StaticIdentity) Identity(_ context.Context) (Identity, error) {
	return Identity{UserID: s.UserID, Ready: true}, nil
}
