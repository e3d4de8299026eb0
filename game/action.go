package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
)

type ActionKind string

const (
	KindMove   ActionKind = "move"
	KindAttack ActionKind = "attack"
	KindWait   ActionKind = "wait"
)

// Action is the tagged union of per-character orders.
type Action interface {
	Kind() ActionKind
}

// Move displaces the character by Delta. A missing delta is a zero delta.
type Move struct {
	Delta Position
}

// Attack strikes the opposing character at roster index Target.
type Attack struct {
	Target int
}

type Wait struct{}

func (Move) Kind() ActionKind   { return KindMove }
func (Attack) Kind() ActionKind { return KindAttack }
func (Wait) Kind() ActionKind   { return KindWait }

// TurnSubmission holds one action per character for both sides, by roster index.
type TurnSubmission struct {
	Player1 []Action
	Player2 []Action
}

func (s TurnSubmission) Side(side Side) []Action {
	if side == Player1 {
		return s.Player1
	}
	return s.Player2
}

type wireSide struct {
	Characters []json.RawMessage `json:"characters"`
}

type wireSubmission struct {
	Player1 json.RawMessage `json:"player_1"`
	Player2 json.RawMessage `json:"player_2"`
}

// actionDecoders maps a kind to its strict decoder. New kinds register here.
var actionDecoders = map[ActionKind]func(json.RawMessage) (Action, error){
	KindMove: func(raw json.RawMessage) (Action, error) {
		var w struct {
			Action ActionKind      `json:"action"`
			Delta  json.RawMessage `json:"delta"`
		}
		if err := strictUnmarshal(raw, &w, "action", "delta"); err != nil {
			return nil, err
		}
		m := Move{}
		if len(w.Delta) > 0 && string(w.Delta) != "null" {
			if err := strictUnmarshal(w.Delta, &m.Delta, "x", "y"); err != nil {
				return nil, fmt.Errorf("delta: %w", err)
			}
		}
		return m, nil
	},
	KindAttack: func(raw json.RawMessage) (Action, error) {
		var w struct {
			Action ActionKind `json:"action"`
			Target *int       `json:"target"`
		}
		if err := strictUnmarshal(raw, &w, "action", "target"); err != nil {
			return nil, err
		}
		if w.Target == nil {
			return nil, fmt.Errorf("attack requires a target")
		}
		return Attack{Target: *w.Target}, nil
	},
	KindWait: func(raw json.RawMessage) (Action, error) {
		var w struct {
			Action ActionKind `json:"action"`
		}
		if err := strictUnmarshal(raw, &w, "action"); err != nil {
			return nil, err
		}
		return Wait{}, nil
	},
}

// DecodeSubmission parses a turn payload into typed actions, rejecting unknown
// fields and unknown action kinds.
func DecodeSubmission(payload []byte) (TurnSubmission, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return TurnSubmission{}, fmt.Errorf("%w: empty payload", ErrMalformedTurnData)
	}
	var w wireSubmission
	if err := strictUnmarshal(payload, &w, "player_1", "player_2"); err != nil {
		return TurnSubmission{}, fmt.Errorf("%w: %v", ErrMalformedTurnData, err)
	}
	if len(w.Player1) == 0 || len(w.Player2) == 0 {
		return TurnSubmission{}, fmt.Errorf("%w: both player_1 and player_2 are required", ErrMalformedTurnData)
	}

	p1, err := decodeSide(Player1, w.Player1)
	if err != nil {
		return TurnSubmission{}, err
	}
	p2, err := decodeSide(Player2, w.Player2)
	if err != nil {
		return TurnSubmission{}, err
	}
	return TurnSubmission{Player1: p1, Player2: p2}, nil
}

func decodeSide(side Side, raw json.RawMessage) ([]Action, error) {
	var w wireSide
	if err := strictUnmarshal(raw, &w, "characters"); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTurnData, side, err)
	}
	actions := make([]Action, 0, len(w.Characters))
	for i, raw := range w.Characters {
		a, err := DecodeAction(raw)
		if err != nil {
			return nil, fmt.Errorf("%s character %d: %w", side, i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// DecodeAction parses a single {"action": "<kind>", ...} object.
func DecodeAction(raw json.RawMessage) (Action, error) {
	var head struct {
		Action ActionKind `json:"action"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTurnData, err)
	}
	if head.Action == "" {
		return nil, fmt.Errorf("%w: action is required", ErrMalformedTurnData)
	}
	decode, ok := actionDecoders[head.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionKind, head.Action)
	}
	a, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTurnData, head.Action, err)
	}
	return a, nil
}

// strictUnmarshal decodes exactly one JSON object into v. Every key must
// equal one of fields byte for byte and appear at most once, and nothing but
// whitespace may follow the object.
func strictUnmarshal(data []byte, v any, fields ...string) error {
	if err := checkObjectKeys(data, fields); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return expectEOF(dec)
}

func checkObjectKeys(data []byte, fields []string) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("expected a JSON object")
	}

	seen := make(map[string]bool, len(fields))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("expected an object key")
		}
		if !slices.Contains(fields, key) {
			return fmt.Errorf("unknown field %q", key)
		}
		if seen[key] {
			return fmt.Errorf("duplicate field %q", key)
		}
		seen[key] = true

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return expectEOF(dec)
}

func expectEOF(dec *json.Decoder) error {
	_, err := dec.Token()
	switch {
	case err == io.EOF:
		return nil
	case err == nil:
		return errors.New("trailing data after object")
	}
	return err
}
