package game

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	ownerID = "owner-1"
	otherID = "intruder-2"
	matchID = "6f1c2f7e-7a53-4d3f-9d6a-2f0b8f4f1a10"
)

// scenarioRosters is the stock 3v3 opening used across tests.
func scenarioRosters(t *testing.T) (Roster, Roster) {
	t.Helper()
	mk := func(x, y, hp, max int) Character {
		c, err := NewCharacter(Position{X: x, Y: y}, hp, max)
		require.NoError(t, err)
		return c
	}
	p1 := Roster{mk(1, 0, 30, 30), mk(1, 3, 20, 20), mk(1, 6, 40, 40)}
	p2 := Roster{mk(14, 0, 50, 50), mk(14, 3, 30, 30), mk(14, 6, 20, 20)}
	return p1, p2
}

func newScenarioState(t *testing.T, status Status) *MatchState {
	t.Helper()
	p1, p2 := scenarioRosters(t)
	state, err := NewMatchState(matchID, ownerID, DefaultRules, p1, p2)
	require.NoError(t, err)
	if status != StatusPending {
		require.NoError(t, state.Start(time.Unix(1700000000, 0)))
	}
	if status == StatusCompleted {
		require.NoError(t, state.Complete(WinnerNone, time.Unix(1700000001, 0)))
	}
	return state
}

var errAppendFailed = errors.New("append failed")

const zeroMovePayload = `{
	"player_1": {"characters": [{"action": "move"}, {"action": "move"}, {"action": "move"}]},
	"player_2": {"characters": [{"action": "move"}, {"action": "move"}, {"action": "move"}]}
}`

// memStore is an in-memory Store whose transactions stage writes and apply
// them only when fn succeeds.
type memStore struct {
	mu      sync.Mutex
	matches map[string]*MatchState
	meta    map[string][]json.RawMessage
	failOn  string
}

func newMemStore(states ...*MatchState) *memStore {
	s := &memStore{matches: map[string]*MatchState{}, meta: map[string][]json.RawMessage{}}
	for _, st := range states {
		s.matches[st.ID] = st.Clone()
	}
	return s
}

type memTx struct {
	store   *memStore
	saved   map[string]*MatchState
	appends map[string][]json.RawMessage
}

func (s *memStore) Transaction(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, saved: map[string]*MatchState{}, appends: map[string][]json.RawMessage{}}
	if err := fn(tx); err != nil {
		return err
	}
	for id, st := range tx.saved {
		s.matches[id] = st
	}
	for k, vals := range tx.appends {
		s.meta[k] = append(s.meta[k], vals...)
	}
	return nil
}

func (t *memTx) LoadMatch(id string) (*MatchState, error) {
	st, ok := t.store.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return st.Clone(), nil
}

func (t *memTx) SaveMatch(state *MatchState) error {
	if _, ok := t.store.matches[state.ID]; !ok {
		return ErrMatchNotFound
	}
	t.saved[state.ID] = state.Clone()
	return nil
}

func (t *memTx) AppendMeta(id, key string, value any) error {
	if t.store.failOn == key {
		return errAppendFailed
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	k := id + "/" + key
	t.appends[k] = append(t.appends[k], raw)
	return nil
}

func (s *memStore) match(id string) *MatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches[id].Clone()
}

func (s *memStore) turns(id string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.meta[id+"/"+TurnsKey]...)
}
