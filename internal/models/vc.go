package models

import "time"

// VCStatus tracks where an investor is in the pipeline.
type VCStatus string

const (
	StatusNotContacted  VCStatus = "not-contacted"
	StatusContacted     VCStatus = "contacted"
	StatusCloseToBuying VCStatus = "close-to-buying"
	StatusFinalized     VCStatus = "finalized"
	StatusLikelyPassed  VCStatus = "likely-passed"
	// StatusBanished marks a VC hidden from every view without removing it.
	StatusBanished VCStatus = "banished"
)

// ValidVCStatuses is the set of all valid VC statuses.
var ValidVCStatuses = []VCStatus{
	StatusNotContacted,
	StatusContacted,
	StatusCloseToBuying,
	StatusFinalized,
	StatusLikelyPassed,
	StatusBanished,
}

// IsValid returns true if the status is recognized.
func (s VCStatus) IsValid() bool {
	for _, v := range ValidVCStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsAdvanced reports whether the status is still shown in a round collapsed
// to its advanced investors.
func (s VCStatus) IsAdvanced() bool {
	return s == StatusCloseToBuying || s == StatusFinalized
}

// MeetingNote is a timestamped note owned by a single VC.
type MeetingNote struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// VC is a tracked investor.
type VC struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Email          string        `json:"email,omitempty"`
	Website        string        `json:"website,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	Status         VCStatus      `json:"status"`
	PurchaseAmount *float64      `json:"purchaseAmount,omitempty"`
	MeetingNotes   []MeetingNote `json:"meetingNotes"`
}

// Commitment returns the committed purchase amount. ok is false unless the
// VC is finalized with a positive amount.
func (v VC) Commitment() (amount float64, ok bool) {
	if v.Status != StatusFinalized || v.PurchaseAmount == nil || *v.PurchaseAmount <= 0 {
		return 0, false
	}
	return *v.PurchaseAmount, true
}

// Clone returns a deep copy of v.
func (v VC) Clone() VC {
	if v.PurchaseAmount != nil {
		amt := *v.PurchaseAmount
		v.PurchaseAmount = &amt
	}
	if v.MeetingNotes != nil {
		notes := make([]MeetingNote, len(v.MeetingNotes))
		copy(notes, v.MeetingNotes)
		v.MeetingNotes = notes
	}
	return v
}

// Amount returns a pointer to a copy of f, for optional amount fields.
func Amount(f float64) *float64 { return &f }
