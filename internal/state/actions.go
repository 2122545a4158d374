// Package state holds the pure reducer over the normalized CRM state, its
// closed action set, and the Dispatcher that owns the current state.
package state

import "github.com/ajitpratap0/fundcrm/internal/models"

// Kind names an action variant. It is also the "type" tag in the action
// JSON codec.
type Kind string

const (
	KindAddVC             Kind = "add_vc"
	KindUpdateVC          Kind = "update_vc"
	KindSetVCStatus       Kind = "set_vc_status"
	KindDeleteVC          Kind = "delete_vc"
	KindDuplicateVC       Kind = "duplicate_vc"
	KindAddVCToRound      Kind = "add_vc_to_round"
	KindRemoveVCFromRound Kind = "remove_vc_from_round"
	KindMoveVC            Kind = "move_vc"
	KindAddRound          Kind = "add_round"
	KindUpdateRound       Kind = "update_round"
	KindDeleteRound       Kind = "delete_round"
	KindReorderRounds     Kind = "reorder_rounds"
	KindReorderVCs        Kind = "reorder_vcs"
	KindCycleVisibility   Kind = "cycle_visibility"
	KindAddMeetingNote    Kind = "add_meeting_note"
	KindUpdateMeetingNote Kind = "update_meeting_note"
	KindDeleteMeetingNote Kind = "delete_meeting_note"
	KindSetScratchpad     Kind = "set_scratchpad"
	KindInitialize        Kind = "initialize"
)

// Action is a closed set of state transitions. Only the types in this file
// implement it.
type Action interface {
	Kind() Kind
	action()
}

// AddVC inserts a VC into RoundID, or into unsorted when RoundID is empty or
// unknown.
type AddVC struct {
	VC      models.VC `json:"vc"`
	RoundID string    `json:"roundId,omitempty"`
}

// UpdateVC replaces the editable profile fields of an existing VC.
type UpdateVC struct {
	VC models.VC `json:"vc"`
}

// SetVCStatus changes a VC's status. PurchaseAmount is required for
// finalized and dropped for every other status.
type SetVCStatus struct {
	VCID           string          `json:"vcId"`
	Status         models.VCStatus `json:"status"`
	PurchaseAmount *float64        `json:"purchaseAmount,omitempty"`
}

// DeleteVC removes a VC from the map and from every container.
type DeleteVC struct {
	VCID string `json:"vcId"`
}

// DuplicateVC copies a VC under NewID next to the original.
type DuplicateVC struct {
	VCID  string `json:"vcId"`
	NewID string `json:"newId"`
}

// AddVCToRound makes RoundID the only container of VCID.
type AddVCToRound struct {
	VCID    string `json:"vcId"`
	RoundID string `json:"roundId"`
}

// RemoveVCFromRound moves VCID out of RoundID into unsorted.
type RemoveVCFromRound struct {
	VCID    string `json:"vcId"`
	RoundID string `json:"roundId"`
}

// MoveVC moves VCID between containers. An empty round id names the
// unsorted bucket; a negative Index appends.
type MoveVC struct {
	VCID        string `json:"vcId"`
	FromRoundID string `json:"fromRoundId"`
	ToRoundID   string `json:"toRoundId"`
	Index       int    `json:"index"`
}

// AddRound appends a round.
type AddRound struct {
	Round models.Round `json:"round"`
}

// UpdateRound replaces a round's name, valuation cap and target amount.
type UpdateRound struct {
	Round models.Round `json:"round"`
}

// DeleteRound removes a round and moves its VCs to unsorted.
type DeleteRound struct {
	RoundID string `json:"roundId"`
}

// ReorderRounds puts rounds in the given id order.
type ReorderRounds struct {
	RoundIDs []string `json:"roundIds"`
}

// ReorderVCs replaces a round's VC list with a permutation of it.
type ReorderVCs struct {
	RoundID string   `json:"roundId"`
	VCIDs   []string `json:"vcIds"`
}

// CycleVisibility advances a round's visibility.
type CycleVisibility struct {
	RoundID string `json:"roundId"`
}

// AddMeetingNote appends a note to a VC.
type AddMeetingNote struct {
	VCID string             `json:"vcId"`
	Note models.MeetingNote `json:"note"`
}

// UpdateMeetingNote rewrites the content of a note.
type UpdateMeetingNote struct {
	VCID    string `json:"vcId"`
	NoteID  string `json:"noteId"`
	Content string `json:"content"`
}

// DeleteMeetingNote removes a note from a VC.
type DeleteMeetingNote struct {
	VCID   string `json:"vcId"`
	NoteID string `json:"noteId"`
}

// SetScratchpad replaces the scratchpad text.
type SetScratchpad struct {
	Text string `json:"text"`
}

// Initialize replaces the whole state, typically once loading finishes.
type Initialize struct {
	State models.State `json:"state"`
}

func (AddVC) Kind() Kind             { return KindAddVC }
func (UpdateVC) Kind() Kind          { return KindUpdateVC }
func (SetVCStatus) Kind() Kind       { return KindSetVCStatus }
func (DeleteVC) Kind() Kind          { return KindDeleteVC }
func (DuplicateVC) Kind() Kind       { return KindDuplicateVC }
func (AddVCToRound) Kind() Kind      { return KindAddVCToRound }
func (RemoveVCFromRound) Kind() Kind { return KindRemoveVCFromRound }
func (MoveVC) Kind() Kind            { return KindMoveVC }
func (AddRound) Kind() Kind          { return KindAddRound }
func (UpdateRound) Kind() Kind       { return KindUpdateRound }
func (DeleteRound) Kind() Kind       { return KindDeleteRound }
func (ReorderRounds) Kind() Kind     { return KindReorderRounds }
func (ReorderVCs) Kind() Kind        { return KindReorderVCs }
func (CycleVisibility) Kind() Kind   { return KindCycleVisibility }
func (AddMeetingNote) Kind() Kind    { return KindAddMeetingNote }
func (UpdateMeetingNote) Kind() Kind { return KindUpdateMeetingNote }
func (DeleteMeetingNote) Kind() Kind { return KindDeleteMeetingNote }
func (SetScratchpad) Kind() Kind     { return KindSetScratchpad }
func (Initialize) Kind() Kind        { return KindInitialize }

func (AddVC) action()             {}
func (UpdateVC) action()          {}
func (SetVCStatus) action()       {}
func (DeleteVC) action()          {}
func (DuplicateVC) action()       {}
func (AddVCToRound) action()      {}
func (RemoveVCFromRound) action() {}
func (MoveVC) action()            {}
func (AddRound) action()          {}
func (UpdateRound) action()       {}
func (DeleteRound) action()       {}
func (ReorderRounds) action()     {}
func (ReorderVCs) action()        {}
func (CycleVisibility) action()   {}
func (AddMeetingNote) action()    {}
func (UpdateMeetingNote) action() {}
func (DeleteMeetingNote) action() {}
func (SetScratchpad) action()     {}
func (Initialize) action()        {}
