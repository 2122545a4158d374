package state

import (
	"fmt"
	"slices"

	"github.com/ajitpratap0/fundcrm/internal/models"
)

// Apply returns the state that results from applying a to s, together with
// the notification for the transition. s is never modified. Unknown actions,
// references to missing entities and idempotent repeats return s unchanged
// with a zero Event; rejected input returns s unchanged with an error-level
// Event. Every effective transition carries a non-error Event.
func Apply(s models.State, a Action) (models.State, Event) {
	switch act := a.(type) {
	case AddVC:
		return addVC(s, act)
	case UpdateVC:
		return updateVC(s, act)
	case SetVCStatus:
		return setVCStatus(s, act)
	case DeleteVC:
		return deleteVC(s, act)
	case DuplicateVC:
		return duplicateVC(s, act)
	case AddVCToRound:
		return addVCToRound(s, act)
	case RemoveVCFromRound:
		return removeVCFromRound(s, act)
	case MoveVC:
		return moveVC(s, act)
	case AddRound:
		return addRound(s, act)
	case UpdateRound:
		return updateRound(s, act)
	case DeleteRound:
		return deleteRound(s, act)
	case ReorderRounds:
		return reorderRounds(s, act)
	case ReorderVCs:
		return reorderVCs(s, act)
	case CycleVisibility:
		return cycleVisibility(s, act)
	case AddMeetingNote:
		return addMeetingNote(s, act)
	case UpdateMeetingNote:
		return updateMeetingNote(s, act)
	case DeleteMeetingNote:
		return deleteMeetingNote(s, act)
	case SetScratchpad:
		return setScratchpad(s, act)
	case Initialize:
		return act.State.Normalize(), info(KindInitialize, "", "Data loaded")
	default:
		return s, Event{}
	}
}

// --- VCs ---

func addVC(s models.State, act AddVC) (models.State, Event) {
	vc := act.VC
	if vc.ID == "" {
		return s, Event{}
	}
	if _, exists := s.VCs[vc.ID]; exists {
		return s, Event{}
	}
	if !vc.Status.IsValid() {
		vc.Status = models.StatusNotContacted
	}
	if _, ok := vc.Commitment(); !ok {
		vc.PurchaseAmount = nil
	}
	vc = vc.Clone()
	if vc.MeetingNotes == nil {
		vc.MeetingNotes = []models.MeetingNote{}
	}

	next := s.Clone()
	next.VCs[vc.ID] = vc
	if idx := next.RoundByID(act.RoundID); act.RoundID != "" && idx >= 0 {
		next.Rounds[idx].VCs = append(next.Rounds[idx].VCs, vc.ID)
		return next, success(KindAddVC, vc.ID, fmt.Sprintf("Added %s to %s", vc.Name, next.Rounds[idx].Name))
	}
	next.UnsortedVCs = append(next.UnsortedVCs, vc.ID)
	return next, success(KindAddVC, vc.ID, fmt.Sprintf("Added %s", vc.Name))
}

func updateVC(s models.State, act UpdateVC) (models.State, Event) {
	cur, ok := s.VCs[act.VC.ID]
	if !ok {
		return s, Event{}
	}
	if cur.Name == act.VC.Name && cur.Email == act.VC.Email &&
		cur.Website == act.VC.Website && cur.Notes == act.VC.Notes {
		return s, Event{}
	}
	next := s.Clone()
	vc := next.VCs[act.VC.ID]
	vc.Name = act.VC.Name
	vc.Email = act.VC.Email
	vc.Website = act.VC.Website
	vc.Notes = act.VC.Notes
	next.VCs[vc.ID] = vc
	return next, info(KindUpdateVC, vc.ID, fmt.Sprintf("Updated %s", vc.Name))
}

func setVCStatus(s models.State, act SetVCStatus) (models.State, Event) {
	cur, ok := s.VCs[act.VCID]
	if !ok || !act.Status.IsValid() {
		return s, Event{}
	}
	var amount *float64
	if act.Status == models.StatusFinalized {
		if act.PurchaseAmount == nil || *act.PurchaseAmount <= 0 {
			return s, failure(KindSetVCStatus, act.VCID, fmt.Sprintf("%s needs a purchase amount to be finalized", cur.Name))
		}
		amount = models.Amount(*act.PurchaseAmount)
	}
	if cur.Status == act.Status && sameAmount(cur.PurchaseAmount, amount) {
		return s, Event{}
	}
	next := s.Clone()
	vc := next.VCs[act.VCID]
	vc.Status = act.Status
	vc.PurchaseAmount = amount
	next.VCs[vc.ID] = vc
	return next, success(KindSetVCStatus, vc.ID, fmt.Sprintf("%s is now %s", vc.Name, vc.Status))
}

func sameAmount(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deleteVC(s models.State, act DeleteVC) (models.State, Event) {
	cur, ok := s.VCs[act.VCID]
	if !ok {
		return s, Event{}
	}
	next := s.Clone()
	delete(next.VCs, act.VCID)
	detach(&next, act.VCID)
	if next.ExpandedVCIDs != nil {
		next.ExpandedVCIDs = without(next.ExpandedVCIDs, act.VCID)
	}
	return next, success(KindDeleteVC, act.VCID, fmt.Sprintf("Deleted %s", cur.Name))
}

func duplicateVC(s models.State, act DuplicateVC) (models.State, Event) {
	orig, ok := s.VCs[act.VCID]
	if !ok || act.NewID == "" {
		return s, Event{}
	}
	if _, taken := s.VCs[act.NewID]; taken {
		return s, Event{}
	}
	next := s.Clone()
	dup := orig.Clone()
	dup.ID = act.NewID
	dup.Name = orig.Name + " (copy)"
	if dup.MeetingNotes == nil {
		dup.MeetingNotes = []models.MeetingNote{}
	}
	for i := range dup.MeetingNotes {
		dup.MeetingNotes[i].ID = act.NewID + ":" + dup.MeetingNotes[i].ID
	}
	next.VCs[dup.ID] = dup

	roundID, placed := next.ContainerOf(act.VCID)
	switch {
	case placed && roundID != "":
		r := &next.Rounds[next.RoundByID(roundID)]
		r.VCs = slices.Insert(r.VCs, slices.Index(r.VCs, act.VCID)+1, dup.ID)
	case placed:
		next.UnsortedVCs = slices.Insert(next.UnsortedVCs, slices.Index(next.UnsortedVCs, act.VCID)+1, dup.ID)
	default:
		next.UnsortedVCs = append(next.UnsortedVCs, dup.ID)
	}
	return next, success(KindDuplicateVC, dup.ID, fmt.Sprintf("Duplicated %s", orig.Name))
}

// --- membership ---

func addVCToRound(s models.State, act AddVCToRound) (models.State, Event) {
	vc, ok := s.VCs[act.VCID]
	idx := s.RoundByID(act.RoundID)
	if !ok || idx < 0 || s.Rounds[idx].Contains(act.VCID) {
		return s, Event{}
	}
	next := s.Clone()
	detach(&next, act.VCID)
	next.Rounds[idx].VCs = append(next.Rounds[idx].VCs, act.VCID)
	return next, success(KindAddVCToRound, act.VCID, fmt.Sprintf("Added %s to %s", vc.Name, next.Rounds[idx].Name))
}

func removeVCFromRound(s models.State, act RemoveVCFromRound) (models.State, Event) {
	idx := s.RoundByID(act.RoundID)
	if idx < 0 || !s.Rounds[idx].Contains(act.VCID) {
		return s, Event{}
	}
	next := s.Clone()
	next.Rounds[idx].VCs = without(next.Rounds[idx].VCs, act.VCID)
	if !slices.Contains(next.UnsortedVCs, act.VCID) {
		next.UnsortedVCs = append(next.UnsortedVCs, act.VCID)
	}
	name := act.VCID
	if vc, ok := next.VCs[act.VCID]; ok {
		name = vc.Name
	}
	return next, info(KindRemoveVCFromRound, act.VCID, fmt.Sprintf("Moved %s to unsorted", name))
}

func moveVC(s models.State, act MoveVC) (models.State, Event) {
	vc, ok := s.VCs[act.VCID]
	if !ok {
		return s, Event{}
	}
	if act.FromRoundID != "" && s.RoundByID(act.FromRoundID) < 0 {
		return s, Event{}
	}
	to := -1
	if act.ToRoundID != "" {
		if to = s.RoundByID(act.ToRoundID); to < 0 {
			return s, Event{}
		}
	}

	next := s.Clone()
	detach(&next, act.VCID)
	dest := "unsorted"
	if to >= 0 {
		next.Rounds[to].VCs = insertAt(next.Rounds[to].VCs, act.VCID, act.Index)
		dest = next.Rounds[to].Name
	} else {
		next.UnsortedVCs = insertAt(next.UnsortedVCs, act.VCID, act.Index)
	}
	if sameMembership(s, next) {
		return s, Event{}
	}
	return next, success(KindMoveVC, act.VCID, fmt.Sprintf("Moved %s to %s", vc.Name, dest))
}

// detach removes vcID from every round list and from unsorted.
func detach(s *models.State, vcID string) {
	for i := range s.Rounds {
		s.Rounds[i].VCs = without(s.Rounds[i].VCs, vcID)
	}
	s.UnsortedVCs = without(s.UnsortedVCs, vcID)
}

func sameMembership(a, b models.State) bool {
	if !slices.Equal(a.UnsortedVCs, b.UnsortedVCs) {
		return false
	}
	for i := range a.Rounds {
		if !slices.Equal(a.Rounds[i].VCs, b.Rounds[i].VCs) {
			return false
		}
	}
	return true
}

// --- rounds ---

func addRound(s models.State, act AddRound) (models.State, Event) {
	r := act.Round
	if r.ID == "" || s.RoundByID(r.ID) >= 0 {
		return s, Event{}
	}
	r.VCs = []string{}
	r.Order = len(s.Rounds)
	r.Visibility = models.VisibilityExpanded
	r.IsExpanded = true
	next := s.Clone()
	next.Rounds = append(next.Rounds, r)
	return next, success(KindAddRound, r.ID, fmt.Sprintf("Round %s created", r.Name))
}

func updateRound(s models.State, act UpdateRound) (models.State, Event) {
	idx := s.RoundByID(act.Round.ID)
	if idx < 0 {
		return s, Event{}
	}
	cur := s.Rounds[idx]
	if cur.Name == act.Round.Name && cur.ValuationCap == act.Round.ValuationCap && cur.TargetAmount == act.Round.TargetAmount {
		return s, Event{}
	}
	next := s.Clone()
	r := &next.Rounds[idx]
	r.Name = act.Round.Name
	r.ValuationCap = act.Round.ValuationCap
	r.TargetAmount = act.Round.TargetAmount
	return next, info(KindUpdateRound, r.ID, fmt.Sprintf("Round %s updated", r.Name))
}

func deleteRound(s models.State, act DeleteRound) (models.State, Event) {
	idx := s.RoundByID(act.RoundID)
	if idx < 0 {
		return s, Event{}
	}
	next := s.Clone()
	removed := next.Rounds[idx]
	for _, id := range removed.VCs {
		if !slices.Contains(next.UnsortedVCs, id) {
			next.UnsortedVCs = append(next.UnsortedVCs, id)
		}
	}
	next.Rounds = slices.Delete(next.Rounds, idx, idx+1)
	renumber(next.Rounds)
	if next.ExpandedRoundIDs != nil {
		next.ExpandedRoundIDs = without(next.ExpandedRoundIDs, act.RoundID)
	}
	msg := fmt.Sprintf("Round %s deleted", removed.Name)
	if n := len(removed.VCs); n > 0 {
		msg = fmt.Sprintf("Round %s deleted, %d VCs moved to unsorted", removed.Name, n)
	}
	return next, success(KindDeleteRound, act.RoundID, msg)
}

func reorderRounds(s models.State, act ReorderRounds) (models.State, Event) {
	ordered := make([]models.Round, 0, len(s.Rounds))
	seen := make(map[string]bool, len(s.Rounds))
	for _, id := range act.RoundIDs {
		if idx := s.RoundByID(id); idx >= 0 && !seen[id] {
			seen[id] = true
			ordered = append(ordered, s.Rounds[idx].Clone())
		}
	}
	for i := range s.Rounds {
		if !seen[s.Rounds[i].ID] {
			ordered = append(ordered, s.Rounds[i].Clone())
		}
	}
	renumber(ordered)

	unchanged := true
	for i := range ordered {
		if ordered[i].ID != s.Rounds[i].ID || ordered[i].Order != s.Rounds[i].Order {
			unchanged = false
			break
		}
	}
	if unchanged {
		return s, Event{}
	}
	next := s.Clone()
	next.Rounds = ordered
	return next, info(KindReorderRounds, "", "Rounds reordered")
}

func renumber(rounds []models.Round) {
	for i := range rounds {
		rounds[i].Order = i
	}
}

func reorderVCs(s models.State, act ReorderVCs) (models.State, Event) {
	idx := s.RoundByID(act.RoundID)
	if idx < 0 {
		return s, Event{}
	}
	members := s.Rounds[idx].VCs
	ordered := make([]string, 0, len(members))
	for _, id := range act.VCIDs {
		if slices.Contains(members, id) && !slices.Contains(ordered, id) {
			ordered = append(ordered, id)
		}
	}
	for _, id := range members {
		if !slices.Contains(ordered, id) {
			ordered = append(ordered, id)
		}
	}
	if slices.Equal(ordered, members) {
		return s, Event{}
	}
	next := s.Clone()
	next.Rounds[idx].VCs = ordered
	return next, info(KindReorderVCs, act.RoundID, fmt.Sprintf("Reordered %s", next.Rounds[idx].Name))
}

func cycleVisibility(s models.State, act CycleVisibility) (models.State, Event) {
	idx := s.RoundByID(act.RoundID)
	if idx < 0 {
		return s, Event{}
	}
	next := s.Clone()
	r := &next.Rounds[idx]
	r.Visibility = r.Visibility.Next()
	r.IsExpanded = r.Visibility == models.VisibilityExpanded
	return next, info(KindCycleVisibility, r.ID, fmt.Sprintf("%s is %s", r.Name, r.Visibility))
}

// --- meeting notes ---

func addMeetingNote(s models.State, act AddMeetingNote) (models.State, Event) {
	vc, ok := s.VCs[act.VCID]
	if !ok || act.Note.ID == "" || noteIndex(vc, act.Note.ID) >= 0 {
		return s, Event{}
	}
	next := s.Clone()
	vc = next.VCs[act.VCID]
	vc.MeetingNotes = append(vc.MeetingNotes, act.Note)
	next.VCs[act.VCID] = vc
	return next, success(KindAddMeetingNote, act.Note.ID, fmt.Sprintf("Note added to %s", vc.Name))
}

func updateMeetingNote(s models.State, act UpdateMeetingNote) (models.State, Event) {
	vc, ok := s.VCs[act.VCID]
	if !ok {
		return s, Event{}
	}
	i := noteIndex(vc, act.NoteID)
	if i < 0 || vc.MeetingNotes[i].Content == act.Content {
		return s, Event{}
	}
	next := s.Clone()
	vc = next.VCs[act.VCID]
	vc.MeetingNotes[i].Content = act.Content
	next.VCs[act.VCID] = vc
	return next, info(KindUpdateMeetingNote, act.NoteID, fmt.Sprintf("Note updated for %s", vc.Name))
}

func deleteMeetingNote(s models.State, act DeleteMeetingNote) (models.State, Event) {
	vc, ok := s.VCs[act.VCID]
	if !ok {
		return s, Event{}
	}
	i := noteIndex(vc, act.NoteID)
	if i < 0 {
		return s, Event{}
	}
	next := s.Clone()
	vc = next.VCs[act.VCID]
	vc.MeetingNotes = slices.Delete(vc.MeetingNotes, i, i+1)
	next.VCs[act.VCID] = vc
	return next, info(KindDeleteMeetingNote, act.NoteID, fmt.Sprintf("Note deleted from %s", vc.Name))
}

func noteIndex(vc models.VC, noteID string) int {
	for i := range vc.MeetingNotes {
		if vc.MeetingNotes[i].ID == noteID {
			return i
		}
	}
	return -1
}

func setScratchpad(s models.State, act SetScratchpad) (models.State, Event) {
	if s.Scratchpad == act.Text {
		return s, Event{}
	}
	next := s.Clone()
	next.Scratchpad = act.Text
	return next, info(KindSetScratchpad, "", "Scratchpad updated")
}

// --- slice helpers ---

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func insertAt(ids []string, id string, index int) []string {
	if index < 0 || index > len(ids) {
		return append(ids, id)
	}
	return slices.Insert(ids, index, id)
}
