package state

import (
	"log/slog"
	"sync"

	"github.com/ajitpratap0/fundcrm/internal/metrics"
	"github.com/ajitpratap0/fundcrm/internal/models"
)

// Listener is called with the new state after every effective transition.
type Listener func(models.State)

// Dispatcher owns the current state and routes actions through Apply.
// It is safe for concurrent use.
type Dispatcher struct {
	mu        sync.Mutex
	state     models.State
	notifier  Notifier
	listeners map[int]Listener
	nextID    int
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher starting from initial. A nil notifier
// discards events.
func NewDispatcher(initial models.State, notifier Notifier, logger *slog.Logger) *Dispatcher {
	if notifier == nil {
		notifier = NotifierFunc(func(Event) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		state:     initial.Normalize(),
		notifier:  notifier,
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// State returns a copy of the current state.
func (d *Dispatcher) State() models.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Clone()
}

// Dispatch applies a and returns the resulting state and event. Listeners
// run only when the state changed; the notifier sees every non-zero event.
func (d *Dispatcher) Dispatch(a Action) (models.State, Event) {
	if a == nil {
		return d.State(), Event{}
	}
	d.mu.Lock()
	next, ev := Apply(d.state, a)
	changed := !ev.IsZero() && ev.Level != LevelError
	if changed {
		d.state = next
	}
	listeners := make([]Listener, 0, len(d.listeners))
	if changed {
		for _, l := range d.listeners {
			listeners = append(listeners, l)
		}
	}
	snapshot := d.state.Clone()
	d.mu.Unlock()

	metrics.Inc(metrics.ActionsTotal)
	if !ev.IsZero() {
		d.notifier.Notify(ev)
	} else {
		d.logger.Debug("action had no effect", "kind", a.Kind())
	}
	for _, l := range listeners {
		l(snapshot)
	}
	return snapshot, ev
}

// DispatchAll applies actions in order and returns the events they produced.
func (d *Dispatcher) DispatchAll(actions ...Action) []Event {
	var events []Event
	for _, a := range actions {
		if _, ev := d.Dispatch(a); !ev.IsZero() {
			events = append(events, ev)
		}
	}
	return events
}

// Subscribe registers l and returns a function that removes it.
func (d *Dispatcher) Subscribe(l Listener) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = l
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}
