package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidDocument is returned when a persisted document lacks the core
// containers or cannot be parsed.
var ErrInvalidDocument = errors.New("invalid state document")

// State is the normalized CRM state and the unit of persistence.
type State struct {
	VCs              map[string]VC `json:"vcs"`
	Rounds           []Round       `json:"rounds"`
	UnsortedVCs      []string      `json:"unsortedVCs"`
	Scratchpad       string        `json:"scratchpad"`
	ExpandedRoundIDs []string      `json:"expandedRoundIds,omitempty"`
	ExpandedVCIDs    []string      `json:"expandedVcIds,omitempty"`
}

// NewState returns the empty default state.
func NewState() State {
	return State{
		VCs:         map[string]VC{},
		Rounds:      []Round{},
		UnsortedVCs: []string{},
	}
}

// IsEmpty reports whether the state holds no rounds, VCs or scratchpad text.
func (s State) IsEmpty() bool {
	return len(s.VCs) == 0 && len(s.Rounds) == 0 && len(s.UnsortedVCs) == 0 && s.Scratchpad == ""
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		VCs:         make(map[string]VC, len(s.VCs)),
		Rounds:      make([]Round, len(s.Rounds)),
		UnsortedVCs: cloneIDs(s.UnsortedVCs),
		Scratchpad:  s.Scratchpad,
	}
	for id, vc := range s.VCs {
		out.VCs[id] = vc.Clone()
	}
	for i := range s.Rounds {
		out.Rounds[i] = s.Rounds[i].Clone()
	}
	if s.ExpandedRoundIDs != nil {
		out.ExpandedRoundIDs = cloneIDs(s.ExpandedRoundIDs)
	}
	if s.ExpandedVCIDs != nil {
		out.ExpandedVCIDs = cloneIDs(s.ExpandedVCIDs)
	}
	return out
}

// Normalize returns a copy of s with nil containers filled and round
// visibility repaired, so older documents decode into a usable state.
func (s State) Normalize() State {
	s = s.Clone()
	for i := range s.Rounds {
		r := &s.Rounds[i]
		if !r.Visibility.IsValid() {
			if r.IsExpanded {
				r.Visibility = VisibilityExpanded
			} else {
				r.Visibility = VisibilityCollapsedAdvanced
			}
		}
		r.IsExpanded = r.Visibility == VisibilityExpanded
	}
	for id, vc := range s.VCs {
		if vc.MeetingNotes == nil {
			vc.MeetingNotes = []MeetingNote{}
			s.VCs[id] = vc
		}
	}
	return s
}

// RoundByID returns the index of the round with the given id, or -1.
func (s State) RoundByID(id string) int {
	for i := range s.Rounds {
		if s.Rounds[i].ID == id {
			return i
		}
	}
	return -1
}

// ContainerOf returns the id of the round holding vcID, "" with ok=true when
// the VC is unsorted, and ok=false when it is in no container.
func (s State) ContainerOf(vcID string) (roundID string, ok bool) {
	for i := range s.Rounds {
		if s.Rounds[i].Contains(vcID) {
			return s.Rounds[i].ID, true
		}
	}
	if indexOf(s.UnsortedVCs, vcID) >= 0 {
		return "", true
	}
	return "", false
}

// Stats holds summary counts about a state.
type Stats struct {
	Rounds       int              `json:"rounds"`
	VCs          int              `json:"vcs"`
	Unsorted     int              `json:"unsorted"`
	ByStatus     map[string]int64 `json:"by_status"`
	TotalRaised  float64          `json:"total_raised"`
	TotalTargets float64          `json:"total_targets"`
}

// Summarize computes Stats for s.
func (s State) Summarize() Stats {
	st := Stats{
		Rounds:   len(s.Rounds),
		VCs:      len(s.VCs),
		Unsorted: len(s.UnsortedVCs),
		ByStatus: make(map[string]int64),
	}
	for _, vc := range s.VCs {
		st.ByStatus[string(vc.Status)]++
		if amt, ok := vc.Commitment(); ok {
			st.TotalRaised += amt
		}
	}
	for i := range s.Rounds {
		st.TotalTargets += s.Rounds[i].TargetAmount
	}
	return st
}

// DecodeState parses a persisted document. The document must carry the vcs,
// rounds and unsortedVCs containers.
func DecodeState(data []byte) (State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	for _, key := range []string{"vcs", "rounds", "unsortedVCs"} {
		if _, ok := raw[key]; !ok {
			return State{}, fmt.Errorf("%w: missing %q", ErrInvalidDocument, key)
		}
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return s.Normalize(), nil
}

// EncodeState serializes s as a persisted document.
func EncodeState(s State) ([]byte, error) {
	data, err := json.Marshal(s.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	return data, nil
}
