// Package dnd turns a completed drag gesture into at most one state action.
package dnd

import (
	"slices"
	"strings"

	"github.com/ajitpratap0/fundcrm/internal/models"
	"github.com/ajitpratap0/fundcrm/internal/state"
)

// Container ids.
const (
	ContainerRounds   = "rounds"
	ContainerUnsorted = "unsorted"

	roundPrefix  = "round:"
	headerPrefix = "round-header:"
	separator    = "::"
)

// Gesture is a finished drag: the dragged item and what it was dropped on.
// OverID is either a container id or another draggable id.
type Gesture struct {
	ActiveID string `json:"activeId"`
	OverID   string `json:"overId"`
}

// RoundContainerID is the id of a round's VC list.
func RoundContainerID(roundID string) string { return roundPrefix + roundID }

// RoundHeaderID is the id of a round's header drop target.
func RoundHeaderID(roundID string) string { return headerPrefix + roundID }

// EncodeDraggableID builds "<containerID>::<entityID>".
func EncodeDraggableID(containerID, entityID string) string {
	return containerID + separator + entityID
}

// DecodeDraggableID splits a draggable id into its container and entity.
func DecodeDraggableID(id string) (containerID, entityID string, ok bool) {
	containerID, entityID, ok = strings.Cut(id, separator)
	if !ok || containerID == "" || entityID == "" {
		return "", "", false
	}
	return containerID, entityID, true
}

// target is a resolved drop location. index is -1 for "append".
type target struct {
	roundID string
	header  bool
	index   int
}

// Resolve maps g onto a single action against s. It returns false when the
// gesture has no effect: no or unknown destination, an undecodable dragged
// id, or a drop back onto the same position.
func Resolve(s models.State, g Gesture) (state.Action, bool) {
	if g.OverID == "" {
		return nil, false
	}
	srcContainer, entity, ok := DecodeDraggableID(g.ActiveID)
	if !ok {
		return nil, false
	}
	if srcContainer == ContainerRounds {
		return resolveRound(s, entity, g.OverID)
	}
	return resolveVC(s, srcContainer, entity, g.OverID)
}

func resolveRound(s models.State, roundID, overID string) (state.Action, bool) {
	from := s.RoundByID(roundID)
	if from < 0 {
		return nil, false
	}
	ids := make([]string, len(s.Rounds))
	for i := range s.Rounds {
		ids[i] = s.Rounds[i].ID
	}

	to := len(ids) - 1
	if overID != ContainerRounds {
		container, overRound, ok := DecodeDraggableID(overID)
		if !ok || container != ContainerRounds {
			return nil, false
		}
		if to = slices.Index(ids, overRound); to < 0 {
			return nil, false
		}
	}
	if from == to {
		return nil, false
	}
	return state.ReorderRounds{RoundIDs: arrayMove(ids, from, to)}, true
}

func resolveVC(s models.State, srcContainer, vcID, overID string) (state.Action, bool) {
	if _, ok := s.VCs[vcID]; !ok {
		return nil, false
	}
	srcRound, ok := roundOf(srcContainer)
	if !ok {
		return nil, false
	}
	src := members(s, srcRound)
	if src == nil || !slices.Contains(src, vcID) {
		return nil, false
	}

	dst, ok := locate(s, overID)
	if !ok {
		return nil, false
	}

	if dst.roundID == srcRound {
		if dst.header || dst.index < 0 {
			return nil, false
		}
		from := slices.Index(src, vcID)
		if from == dst.index {
			return nil, false
		}
		if srcRound == "" {
			return state.MoveVC{VCID: vcID, Index: dst.index}, true
		}
		return state.ReorderVCs{RoundID: srcRound, VCIDs: arrayMove(src, from, dst.index)}, true
	}
	return state.MoveVC{VCID: vcID, FromRoundID: srcRound, ToRoundID: dst.roundID, Index: dst.index}, true
}

// locate resolves a drop target id to a VC container and insert index.
func locate(s models.State, overID string) (target, bool) {
	if rest, ok := strings.CutPrefix(overID, headerPrefix); ok {
		if s.RoundByID(rest) < 0 {
			return target{}, false
		}
		return target{roundID: rest, header: true, index: -1}, true
	}
	if container, entity, ok := DecodeDraggableID(overID); ok {
		roundID, ok := roundOf(container)
		if !ok {
			return target{}, false
		}
		list := members(s, roundID)
		if list == nil {
			return target{}, false
		}
		idx := slices.Index(list, entity)
		if idx < 0 {
			return target{}, false
		}
		return target{roundID: roundID, index: idx}, true
	}
	roundID, ok := roundOf(overID)
	if !ok || members(s, roundID) == nil {
		return target{}, false
	}
	return target{roundID: roundID, index: -1}, true
}

// roundOf maps a VC container id to its round id ("" for unsorted).
func roundOf(container string) (string, bool) {
	if container == ContainerUnsorted {
		return "", true
	}
	if id, ok := strings.CutPrefix(container, roundPrefix); ok && id != "" {
		return id, true
	}
	return "", false
}

// members returns the VC list of a container, or nil if the round is unknown.
func members(s models.State, roundID string) []string {
	if roundID == "" {
		if s.UnsortedVCs == nil {
			return []string{}
		}
		return s.UnsortedVCs
	}
	idx := s.RoundByID(roundID)
	if idx < 0 {
		return nil
	}
	if s.Rounds[idx].VCs == nil {
		return []string{}
	}
	return s.Rounds[idx].VCs
}

// arrayMove returns a copy of ids with the element at from moved to to.
func arrayMove(ids []string, from, to int) []string {
	out := slices.Clone(ids)
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item)
}
