package persist

import "time"

// Phase is the save lifecycle position.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDebouncing Phase = "debouncing"
	PhaseSaving     Phase = "saving"
	PhaseSaved      Phase = "saved"
	PhaseFailed     Phase = "failed"
)

// Status is a snapshot of the save lifecycle.
type Status struct {
	Phase       Phase     `json:"phase"`
	Attempt     int       `json:"attempt"`
	LastError   string    `json:"lastError,omitempty"`
	Retrying    bool      `json:"retrying"`
	Permanent   bool      `json:"permanent"`
	LastSavedAt time.Time `json:"lastSavedAt,omitempty"`
}

// Source tells where Load found the document.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceLocal   Source = "local"
	SourceDefault Source = "default"
)

// Options tunes the orchestrator.
type Options struct {
	Debounce    time.Duration
	BaseDelay   time.Duration
	MaxAttempts int
	KeyPrefix   string
}

// DefaultOptions returns the stock debounce and retry settings.
func DefaultOptions() Options {
	return Options{
		Debounce:    time.Second,
		BaseDelay:   time.Second,
		MaxAttempts: 5,
		KeyPrefix:   "fundraising-crm",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = d.BaseDelay
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = d.KeyPrefix
	}
	return o
}

// backoff returns the delay before the retry that follows attempt.
func (o Options) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return o.BaseDelay * time.Duration(1<<(attempt-1))
}
