package models

// Visibility controls how much of a round's VC list is shown.
type Visibility string

const (
	VisibilityExpanded          Visibility = "expanded"
	VisibilityCollapsedAdvanced Visibility = "collapsed-advanced"
	VisibilityCollapsedHidden   Visibility = "collapsed-hidden"
)

// Next returns the following visibility in the fixed three-state cycle.
// Unknown values restart the cycle at collapsed-advanced, as if expanded.
func (v Visibility) Next() Visibility {
	switch v {
	case VisibilityCollapsedAdvanced:
		return VisibilityCollapsedHidden
	case VisibilityCollapsedHidden:
		return VisibilityExpanded
	default:
		return VisibilityCollapsedAdvanced
	}
}

// IsValid returns true if the visibility is recognized.
func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityExpanded, VisibilityCollapsedAdvanced, VisibilityCollapsedHidden:
		return true
	}
	return false
}

// Round is a funding round holding an ordered list of VC ids.
type Round struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	ValuationCap float64    `json:"valuationCap"`
	TargetAmount float64    `json:"targetAmount"`
	VCs          []string   `json:"vcs"`
	Order        int        `json:"order"`
	IsExpanded   bool       `json:"isExpanded"`
	Visibility   Visibility `json:"visibility"`
}

// Clone returns a deep copy of r.
func (r Round) Clone() Round {
	r.VCs = cloneIDs(r.VCs)
	return r
}

// Contains reports whether vcID is in the round's list.
func (r Round) Contains(vcID string) bool {
	return indexOf(r.VCs, vcID) >= 0
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func indexOf(ids []string, id string) int {
	for i := range ids {
		if ids[i] == id {
			return i
		}
	}
	return -1
}
