package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/fundcrm/internal/models"
)

// IDFunc generates entity ids. Tests swap it for a deterministic sequence.
type IDFunc func() string

// NewID is the default id source.
var NewID IDFunc = uuid.NewString

// Now is the default clock for meeting-note timestamps.
var Now = func() time.Time { return time.Now().UTC() }

// NewVC builds a VC with a fresh id, ready for AddVC.
func NewVC(name string, status models.VCStatus, purchaseAmount *float64) models.VC {
	vc := models.VC{
		ID:           NewID(),
		Name:         name,
		Status:       status,
		MeetingNotes: []models.MeetingNote{},
	}
	if !vc.Status.IsValid() {
		vc.Status = models.StatusNotContacted
	}
	if purchaseAmount != nil && vc.Status == models.StatusFinalized {
		vc.PurchaseAmount = models.Amount(*purchaseAmount)
	}
	return vc
}

// NewRound builds a round with a fresh id, ready for AddRound.
func NewRound(name string, valuationCap, targetAmount float64) models.Round {
	return models.Round{
		ID:           NewID(),
		Name:         name,
		ValuationCap: valuationCap,
		TargetAmount: targetAmount,
		VCs:          []string{},
		Visibility:   models.VisibilityExpanded,
		IsExpanded:   true,
	}
}

// NewMeetingNote builds a note stamped with the current time.
func NewMeetingNote(content string) models.MeetingNote {
	return models.MeetingNote{
		ID:        NewID(),
		Timestamp: Now(),
		Content:   content,
	}
}

// Duplicate builds a DuplicateVC action with a fresh id for the copy.
func Duplicate(vcID string) DuplicateVC {
	return DuplicateVC{VCID: vcID, NewID: NewID()}
}

// VisibleVCIDs returns the VC ids of r shown under its current visibility.
func VisibleVCIDs(r models.Round, vcs map[string]models.VC) []string {
	switch r.Visibility {
	case models.VisibilityCollapsedHidden:
		return []string{}
	case models.VisibilityCollapsedAdvanced:
		out := []string{}
		for _, id := range r.VCs {
			if vc, ok := vcs[id]; ok && vc.Status.IsAdvanced() {
				out = append(out, id)
			}
		}
		return out
	default:
		out := make([]string, len(r.VCs))
		copy(out, r.VCs)
		return out
	}
}
