package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownAction is returned by DecodeAction for an unrecognized type tag.
var ErrUnknownAction = errors.New("unknown action type")

// envelope is the wire form of an action: {"type": "...", "payload": {...}}.
type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeAction serializes a in its tagged envelope.
func EncodeAction(a Action) ([]byte, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", a.Kind(), err)
	}
	return json.Marshal(envelope{Type: a.Kind(), Payload: payload})
}

// DecodeAction parses a tagged envelope into its concrete action.
func DecodeAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding action envelope: %w", err)
	}
	a, err := decodePayload(env.Type, env.Payload)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func decodePayload(kind Kind, payload json.RawMessage) (Action, error) {
	switch kind {
	case KindAddVC:
		return decodeAs[AddVC](kind, payload)
	case KindUpdateVC:
		return decodeAs[UpdateVC](kind, payload)
	case KindSetVCStatus:
		return decodeAs[SetVCStatus](kind, payload)
	case KindDeleteVC:
		return decodeAs[DeleteVC](kind, payload)
	case KindDuplicateVC:
		return decodeAs[DuplicateVC](kind, payload)
	case KindAddVCToRound:
		return decodeAs[AddVCToRound](kind, payload)
	case KindRemoveVCFromRound:
		return decodeAs[RemoveVCFromRound](kind, payload)
	case KindMoveVC:
		return decodeAs[MoveVC](kind, payload)
	case KindAddRound:
		return decodeAs[AddRound](kind, payload)
	case KindUpdateRound:
		return decodeAs[UpdateRound](kind, payload)
	case KindDeleteRound:
		return decodeAs[DeleteRound](kind, payload)
	case KindReorderRounds:
		return decodeAs[ReorderRounds](kind, payload)
	case KindReorderVCs:
		return decodeAs[ReorderVCs](kind, payload)
	case KindCycleVisibility:
		return decodeAs[CycleVisibility](kind, payload)
	case KindAddMeetingNote:
		return decodeAs[AddMeetingNote](kind, payload)
	case KindUpdateMeetingNote:
		return decodeAs[UpdateMeetingNote](kind, payload)
	case KindDeleteMeetingNote:
		return decodeAs[DeleteMeetingNote](kind, payload)
	case KindSetScratchpad:
		return decodeAs[SetScratchpad](kind, payload)
	case KindInitialize:
		return decodeAs[Initialize](kind, payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
}

func decodeAs[T Action](kind Kind, payload json.RawMessage) (Action, error) {
	var a T
	if len(payload) == 0 {
		return a, nil
	}
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", kind, err)
	}
	return a, nil
}
