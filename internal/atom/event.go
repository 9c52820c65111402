package atom

import (
	"encoding/json"
	"fmt"
)

// ChangeEvent is the canonical record of one field mutation.
//
// It carries enough metadata to support deduplication (ChangeID), loopback
// suppression (Source), and compensation of optimistic updates (PrevValue).
// The same structure describes locally-created changes and changes received
// from peers; remote events arrive fully formed with a peer's Source.
//
// A ChangeEvent is immutable once created. Middleware that wants to alter a
// change builds a modified copy rather than mutating in place.
type ChangeEvent struct {
	// AtomID names the field this change targets.
	AtomID string `json:"atom_id"`

	// PrevValue is the field's value immediately before the change.
	// Null when the previous value is unknown (synthetic restore events).
	PrevValue Value `json:"prev_value"`

	// NewValue is the validated value the change applies.
	NewValue Value `json:"new_value"`

	// Timestamp is wall-clock milliseconds, monotonic-guarded per store.
	// It is informational; ordering is by application order, not timestamp.
	Timestamp int64 `json:"timestamp"`

	// ChangeID is globally unique per event (UUIDv7).
	ChangeID string `json:"change_id"`

	// Source identifies the originating store instance (not the process).
	// A store discards incoming events whose Source equals its own.
	Source string `json:"source"`

	// Optimistic marks a change that is applied locally but withheld from
	// persistence and transport pending external confirmation.
	Optimistic bool `json:"optimistic"`
}

// changeEventWire mirrors ChangeEvent with raw JSON values so the sealed
// Value union can be decoded explicitly.
type changeEventWire struct {
	AtomID     string          `json:"atom_id"`
	PrevValue  json.RawMessage `json:"prev_value"`
	NewValue   json.RawMessage `json:"new_value"`
	Timestamp  int64           `json:"timestamp"`
	ChangeID   string          `json:"change_id"`
	Source     string          `json:"source"`
	Optimistic bool            `json:"optimistic"`
}

// EncodeEvent serializes a ChangeEvent for transport or storage.
func EncodeEvent(ev ChangeEvent) ([]byte, error) {
	prev, err := Marshal(ev.PrevValue)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: prev value: %w", ev.ChangeID, err)
	}
	next, err := Marshal(ev.NewValue)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: new value: %w", ev.ChangeID, err)
	}
	return json.Marshal(changeEventWire{
		AtomID:     ev.AtomID,
		PrevValue:  prev,
		NewValue:   next,
		Timestamp:  ev.Timestamp,
		ChangeID:   ev.ChangeID,
		Source:     ev.Source,
		Optimistic: ev.Optimistic,
	})
}

// DecodeEvent deserializes a ChangeEvent produced by EncodeEvent.
// Returns an error for structurally invalid input; field existence is the
// receiving store's concern, not the codec's.
func DecodeEvent(data []byte) (ChangeEvent, error) {
	var wire changeEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if wire.AtomID == "" {
		return ChangeEvent{}, fmt.Errorf("decode event: missing atom_id")
	}
	if wire.ChangeID == "" {
		return ChangeEvent{}, fmt.Errorf("decode event: missing change_id")
	}

	prev := Value(Null{})
	if len(wire.PrevValue) > 0 {
		v, err := Decode(wire.PrevValue)
		if err != nil {
			return ChangeEvent{}, fmt.Errorf("decode event %s: prev value: %w", wire.ChangeID, err)
		}
		prev = v
	}
	next := Value(Null{})
	if len(wire.NewValue) > 0 {
		v, err := Decode(wire.NewValue)
		if err != nil {
			return ChangeEvent{}, fmt.Errorf("decode event %s: new value: %w", wire.ChangeID, err)
		}
		next = v
	}

	return ChangeEvent{
		AtomID:     wire.AtomID,
		PrevValue:  prev,
		NewValue:   next,
		Timestamp:  wire.Timestamp,
		ChangeID:   wire.ChangeID,
		Source:     wire.Source,
		Optimistic: wire.Optimistic,
	}, nil
}
