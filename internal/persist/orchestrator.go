// Package persist loads the CRM document at startup and saves it after
// changes, debounced, with bounded exponential-backoff retry.
package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/fundcrm/internal/metrics"
	"github.com/ajitpratap0/fundcrm/internal/models"
	"github.com/ajitpratap0/fundcrm/internal/schedule"
	"github.com/ajitpratap0/fundcrm/internal/state"
	"github.com/ajitpratap0/fundcrm/internal/store"
)

// Orchestrator coordinates loading and saving the state document.
// It is safe for concurrent use.
type Orchestrator struct {
	remote   store.DocumentStore
	local    store.LocalStore
	identity IdentityResolver
	clock    schedule.Clock
	logger   *slog.Logger
	opts     Options

	mu        sync.Mutex
	ident     Identity
	loaded    bool
	closed    bool
	pending   *models.State
	lastSaved []byte
	timer     schedule.Timer
	gen       uint64
	status    Status
	subs      map[int]func(Status)
	nextSub   int
	unsynced  bool

	// saveMu keeps one write in flight at a time.
	saveMu sync.Mutex
}

// New creates an Orchestrator. remote may be nil, in which case every save
// goes to the local store.
func New(remote store.DocumentStore, local store.LocalStore, identity IdentityResolver, clock schedule.Clock, logger *slog.Logger, opts Options) *Orchestrator {
	if clock == nil {
		clock = schedule.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		remote:   remote,
		local:    local,
		identity: identity,
		clock:    clock,
		logger:   logger,
		opts:     opts.withDefaults(),
		status:   Status{Phase: PhaseIdle},
		subs:     make(map[int]func(Status)),
	}
}

// Load resolves the identity and reads its document. Remote read errors fall
// back to the local store for any user; a missing or invalid remote document
// falls back to the local store only for anonymous users. A signed-in user's
// document that never reached the remote store is loaded instead of the
// remote copy and saved again. When nothing usable is found the empty state
// is returned with SourceDefault.
func (o *Orchestrator) Load(ctx context.Context) (models.State, Source, error) {
	ident, err := o.identity.Identity(ctx)
	if err != nil {
		return models.State{}, "", fmt.Errorf("resolving identity: %w", err)
	}
	if !ident.Ready {
		return models.State{}, "", ErrIdentityNotReady
	}

	s, src, unsynced := o.read(ctx, ident)
	doc, err := models.EncodeState(s)
	if err != nil {
		return models.State{}, "", err
	}

	o.mu.Lock()
	o.ident = ident
	o.loaded = true
	o.lastSaved = doc
	o.pending = nil
	o.unsynced = unsynced
	if unsynced {
		o.lastSaved = nil
	}
	o.mu.Unlock()

	o.logger.Info("state loaded", "source", src, "user", ident.Key(), "vcs", len(s.VCs), "rounds", len(s.Rounds))
	if unsynced {
		o.logger.Warn("local changes were never saved remotely, saving again", "user", ident.Key())
		o.Notify(s)
	}
	return s, src, nil
}

func (o *Orchestrator) read(ctx context.Context, ident Identity) (models.State, Source, bool) {
	key := ident.Key()
	fallback := ident.Anonymous() || o.remote == nil

	if !fallback {
		if s, ok := o.readUnsynced(key); ok {
			return s, SourceLocal, true
		}
	}

	if o.remote != nil {
		data, err := o.remote.Get(ctx, key)
		switch {
		case err == nil:
			s, decErr := models.DecodeState(data)
			if decErr == nil {
				return s, SourceRemote, false
			}
			o.logger.Warn("remote document invalid", "user", key, "error", decErr)
		case errors.Is(err, store.ErrNotFound):
			o.logger.Debug("no remote document", "user", key)
		default:
			o.logger.Warn("remote load failed, using local copy", "user", key, "error", err)
			fallback = true
		}
	}

	if fallback {
		if s, ok := o.readLocal(store.LocalKey(o.opts.KeyPrefix, key)); ok {
			return s, SourceLocal, false
		}
	}
	return models.NewState(), SourceDefault, false
}

func (o *Orchestrator) readUnsynced(key string) (models.State, bool) {
	return o.readLocal(store.UnsyncedKey(o.opts.KeyPrefix, key))
}

func (o *Orchestrator) readLocal(localKey string) (models.State, bool) {
	raw, ok, err := o.local.Get(localKey)
	if err != nil {
		o.logger.Warn("local load failed", "key", localKey, "error", err)
		return models.State{}, false
	}
	if !ok || raw == "" {
		return models.State{}, false
	}
	s, err := models.DecodeState([]byte(raw))
	if err != nil {
		o.logger.Warn("local document invalid", "key", localKey, "error", err)
		return models.State{}, false
	}
	return s, true
}

// Watch subscribes the orchestrator to d's state changes.
func (o *Orchestrator) Watch(d *state.Dispatcher) (unsubscribe func()) {
	return d.Subscribe(o.Notify)
}

// Notify records s as the latest state and restarts the debounce timer.
// A pending retry is superseded. Calls before Load are ignored.
func (o *Orchestrator) Notify(s models.State) {
	o.mu.Lock()
	if o.closed || !o.loaded {
		o.mu.Unlock()
		return
	}
	o.pending = &s
	o.stopTimerLocked()
	o.gen++
	gen := o.gen
	o.timer = o.clock.AfterFunc(o.opts.Debounce, func() { o.fire(gen, 1, true) })
	o.status.Phase = PhaseDebouncing
	o.status.Attempt = 0
	o.status.Retrying = false
	o.status.Permanent = false
	o.mu.Unlock()
	o.publish()
}

// Flush saves the latest state immediately, cancelling any pending timer.
// A failed flush is not retried automatically.
func (o *Orchestrator) Flush(ctx context.Context) error {
	gen, ok := o.restart()
	if !ok {
		return nil
	}
	return o.save(ctx, gen, 1, false)
}

// Retry starts a user-initiated save cycle now, regardless of how many
// automatic attempts were used. Automatic backoff resumes if it fails.
func (o *Orchestrator) Retry(ctx context.Context) error {
	gen, ok := o.restart()
	if !ok {
		return nil
	}
	metrics.Inc(metrics.SaveRetries)
	o.logger.Info("manual save retry")
	return o.save(ctx, gen, 1, true)
}

func (o *Orchestrator) restart() (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || !o.loaded {
		return 0, false
	}
	o.stopTimerLocked()
	o.gen++
	return o.gen, true
}

func (o *Orchestrator) fire(gen uint64, attempt int, retry bool) {
	o.mu.Lock()
	if o.closed || gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	o.mu.Unlock()
	_ = o.save(context.Background(), gen, attempt, retry)
}

func (o *Orchestrator) save(ctx context.Context, gen uint64, attempt int, retry bool) error {
	o.saveMu.Lock()
	defer o.saveMu.Unlock()

	o.mu.Lock()
	if gen != o.gen || o.pending == nil {
		o.mu.Unlock()
		return nil
	}
	doc, err := models.EncodeState(*o.pending)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	if bytes.Equal(doc, o.lastSaved) {
		o.status.Phase = o.restingPhaseLocked()
		o.status.Attempt = 0
		o.status.LastError = ""
		o.status.Retrying = false
		o.status.Permanent = false
		o.mu.Unlock()
		o.publish()
		return nil
	}
	ident := o.ident
	o.status.Phase = PhaseSaving
	o.status.Attempt = attempt
	o.status.Retrying = false
	o.mu.Unlock()
	o.publish()

	err = o.write(ctx, ident, doc)

	o.mu.Lock()
	current := gen == o.gen
	if err == nil {
		o.lastSaved = doc
		o.status.LastSavedAt = o.clock.Now()
		if current {
			o.status.Phase = PhaseSaved
			o.status.Attempt = 0
			o.status.LastError = ""
			o.status.Permanent = false
		}
		o.mu.Unlock()
		metrics.Inc(metrics.SavesTotal)
		o.logger.Debug("state saved", "user", ident.Key(), "bytes", len(doc))
		o.publish()
		return nil
	}

	metrics.Inc(metrics.SaveFailures)
	if !current {
		// A newer change owns the timer now.
		o.mu.Unlock()
		o.logger.Warn("superseded save failed", "error", err)
		return err
	}
	o.status.Phase = PhaseFailed
	o.status.LastError = err.Error()
	if retry && attempt < o.opts.MaxAttempts {
		delay := o.opts.backoff(attempt)
		o.status.Retrying = true
		o.timer = o.clock.AfterFunc(delay, func() {
			metrics.Inc(metrics.SaveRetries)
			o.fire(gen, attempt+1, true)
		})
		o.logger.Warn("save failed, retrying", "attempt", attempt, "delay", delay, "error", err)
	} else {
		o.status.Permanent = true
		o.logger.Error("save failed", "attempt", attempt, "error", err)
	}
	o.mu.Unlock()
	o.publish()
	return err
}

// write stores doc. Anonymous users write only to the local store.
// Signed-in users write remotely with a concurrent local backup whose
// failure is logged but does not fail the save. A document the remote store
// rejects is also kept under the unsynced key until a later remote write
// succeeds.
func (o *Orchestrator) write(ctx context.Context, ident Identity, doc []byte) error {
	localKey := store.LocalKey(o.opts.KeyPrefix, ident.Key())
	if ident.Anonymous() || o.remote == nil {
		if err := o.local.Set(localKey, string(doc)); err != nil {
			return fmt.Errorf("writing local document: %w", err)
		}
		return nil
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := o.remote.Upsert(ctx, ident.Key(), doc); err != nil {
			return fmt.Errorf("writing remote document: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := o.local.Set(localKey, string(doc)); err != nil {
			metrics.Inc(metrics.LocalBackupErrors)
			o.logger.Warn("local backup failed", "key", localKey, "error", err)
		}
		return nil
	})
	err := g.Wait()
	o.markUnsynced(ident, doc, err != nil)
	return err
}

// markUnsynced records doc under the unsynced key after a failed remote
// write and clears the key once a remote write succeeds.
func (o *Orchestrator) markUnsynced(ident Identity, doc []byte, failed bool) {
	o.mu.Lock()
	was := o.unsynced
	o.unsynced = failed
	o.mu.Unlock()
	if !failed && !was {
		return
	}

	key := store.UnsyncedKey(o.opts.KeyPrefix, ident.Key())
	value := ""
	if failed {
		value = string(doc)
	}
	if err := o.local.Set(key, value); err != nil {
		metrics.Inc(metrics.LocalBackupErrors)
		o.logger.Warn("recording unsynced document failed", "key", key, "error", err)
		if !failed {
			// Clear again after the next successful write.
			o.mu.Lock()
			o.unsynced = true
			o.mu.Unlock()
		}
	}
}

func (o *Orchestrator) restingPhaseLocked() Phase {
	if o.status.LastSavedAt.IsZero() {
		return PhaseIdle
	}
	return PhaseSaved
}

func (o *Orchestrator) stopTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

// Status returns the current save status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Subscribe registers fn to observe status changes and returns a function
// that removes it.
func (o *Orchestrator) Subscribe(fn func(Status)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

func (o *Orchestrator) publish() {
	o.mu.Lock()
	st := o.status
	subs := make([]func(Status), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// Close stops pending timers. Later changes are ignored.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.stopTimerLocked()
	o.gen++
}
