package persist

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/fundcrm/internal/models"
	"github.com/ajitpratap0/fundcrm/internal/schedule"
	"github.com/ajitpratap0/fundcrm/internal/store"
)

var epochForLoad = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type identityFunc func(context.Context) (Identity, error)

func (f identityFunc) Identity(ctx context.Context) (Identity, error) { return f(ctx) }

func TestLoad(t *testing.T) {
	local := withScratchpad(models.NewState(), "from local")
	remote := withScratchpad(models.NewState(), "from remote")

	tests := []struct {
		name        string
		userID      string
		remoteDoc   string
		remoteErr   error
		localDoc    string
		wantSource  Source
		wantScratch string
	}{
		{name: "remote document", userID: "alice", remoteDoc: "remote", localDoc: "local", wantSource: SourceRemote, wantScratch: "from remote"},
		{name: "remote error falls back for user", userID: "alice", remoteErr: errUnavailable, localDoc: "local", wantSource: SourceLocal, wantScratch: "from local"},
		{name: "remote absent for user is default", userID: "alice", localDoc: "local", wantSource: SourceDefault},
		{name: "remote invalid for user is default", userID: "alice", remoteDoc: "invalid", localDoc: "local", wantSource: SourceDefault},
		{name: "remote absent for anonymous uses local", localDoc: "local", wantSource: SourceLocal, wantScratch: "from local"},
		{name: "remote invalid for anonymous uses local", remoteDoc: "invalid", localDoc: "local", wantSource: SourceLocal, wantScratch: "from local"},
		{name: "nothing anywhere", userID: "alice", wantSource: SourceDefault},
		{name: "corrupt local is default", remoteErr: errUnavailable, localDoc: "corrupt", wantSource: SourceDefault},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.userID)
			key := Identity{UserID: tc.userID}.Key()
			switch tc.remoteDoc {
			case "remote":
				h.remote.Seed(key, encode(t, remote))
			case "invalid":
				h.remote.Seed(key, []byte(`{"vcs":{}}`))
			}
			if tc.remoteErr != nil {
				h.remote.FailGets(tc.remoteErr)
			}
			switch tc.localDoc {
			case "local":
				require.NoError(t, h.local.Set(store.LocalKey("fundraising-crm", key), string(encode(t, local))))
			case "corrupt":
				require.NoError(t, h.local.Set(store.LocalKey("fundraising-crm", key), "{not json"))
			}

			s, src, err := h.orch.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.wantSource, src)
			assert.Equal(t, tc.wantScratch, s.Scratchpad)
			if tc.wantSource == SourceDefault {
				assert.True(t, s.IsEmpty())
			}
		})
	}
}

func TestLoad_IdentityNotReady(t *testing.T) {
	ready := false
	resolver := identityFunc(func(context.Context) (Identity, error) {
		return Identity{UserID: "alice", Ready: ready}, nil
	})
	orch := New(store.NewMockStore(), store.NewMemoryLocalStore(), resolver,
		schedule.NewFakeClock(epochForLoad), slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	defer orch.Close()

	_, _, err := orch.Load(context.Background())
	require.ErrorIs(t, err, ErrIdentityNotReady)

	ready = true
	_, src, err := orch.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, src)
}

func TestLoad_WithoutRemoteUsesLocal(t *testing.T) {
	local := store.NewMemoryLocalStore()
	require.NoError(t, local.Set("fundraising-crm-alice", string(encode(t, withScratchpad(models.NewState(), "offline")))))
	orch := New(nil, local, StaticIdentity{UserID: "alice"}, schedule.NewFakeClock(epochForLoad),
		slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	defer orch.Close()

	s, src, err := orch.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, src)
	assert.Equal(t, "offline", s.Scratchpad)
}

func TestBackoff(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, []string{"1s", "2s", "4s", "8s"}, []string{
		o.backoff(1).String(), o.backoff(2).String(), o.backoff(3).String(), o.backoff(4).String(),
	})
}
