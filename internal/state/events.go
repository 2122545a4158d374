package state

import (
	"context"
	"log/slog"
	"sync"
)

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Event is the notification emitted alongside a state transition.
type Event struct {
	Kind     Kind   `json:"kind"`
	Level    Level  `json:"level"`
	Message  string `json:"message"`
	EntityID string `json:"entity_id,omitempty"`
}

// IsZero reports whether the transition produced no notification.
func (e Event) IsZero() bool { return e.Kind == "" }

func success(k Kind, id, msg string) Event {
	return Event{Kind: k, Level: LevelSuccess, Message: msg, EntityID: id}
}

func info(k Kind, id, msg string) Event {
	return Event{Kind: k, Level: LevelInfo, Message: msg, EntityID: id}
}

func failure(k Kind, id, msg string) Event {
	return Event{Kind: k, Level: LevelError, Message: msg, EntityID: id}
}

// Notifier receives events produced by dispatched actions.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) { f(e) }

// SlogNotifier logs events.
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier creates a notifier that writes events to logger.
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

// Notify logs e at a level matching its severity.
func (n *SlogNotifier) Notify(e Event) {
	level := slog.LevelInfo
	if e.Level == LevelError {
		level = slog.LevelWarn
	}
	n.logger.Log(context.Background(), level, e.Message, "kind", e.Kind, "id", e.EntityID)
}

// RecordingNotifier keeps every event it receives.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

// Notify records e.
func (r *RecordingNotifier) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *RecordingNotifier) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
