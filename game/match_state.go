package game

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Winner values recorded when a match completes.
const (
	WinnerNone = ""
	WinnerDraw = "draw"
)

// MatchState is the mutable aggregate the engine works on.
type MatchState struct {
	ID           string
	Owner        string
	Status       Status
	Grid         Grid
	Player1      Roster
	Player2      Roster
	Turn         int
	Winner       string
	LastActivity time.Time
}

// NewMatchState builds a PENDING match after validating both rosters against rules.
func NewMatchState(id, owner string, rules Rules, p1, p2 Roster) (*MatchState, error) {
	if err := rules.ValidateRoster(Player1, p1); err != nil {
		return nil, err
	}
	if err := rules.ValidateRoster(Player2, p2); err != nil {
		return nil, err
	}
	return &MatchState{
		ID:      id,
		Owner:   owner,
		Status:  StatusPending,
		Grid:    rules.Grid,
		Player1: p1.Clone(),
		Player2: p2.Clone(),
	}, nil
}

func (m *MatchState) Roster(s Side) Roster {
	if s == Player1 {
		return m.Player1
	}
	return m.Player2
}

// Clone returns a deep copy; rosters are not shared.
func (m *MatchState) Clone() *MatchState {
	c := *m
	c.Player1 = m.Player1.Clone()
	c.Player2 = m.Player2.Clone()
	return &c
}

func (m *MatchState) Start(now time.Time) error {
	if m.Status != StatusPending {
		return fmt.Errorf("%w: cannot start match in %s", ErrInvalidStateTransition, m.Status)
	}
	m.Status = StatusInProgress
	m.LastActivity = now
	return nil
}

// ApplyTurn overwrites both rosters from the snapshot and advances the turn counter.
func (m *MatchState) ApplyTurn(result TurnResult, now time.Time) error {
	if m.Status != StatusInProgress {
		return fmt.Errorf("%w: status %s", ErrInvalidMatchState, m.Status)
	}
	for _, s := range []Side{Player1, Player2} {
		if got, want := len(result.side(s)), len(m.Roster(s)); got != want {
			return fmt.Errorf("%w: %s snapshot has %d characters, roster has %d", ErrMalformedTurnData, s, got, want)
		}
	}
	m.Player1 = result.Player1.Characters.Clone()
	m.Player2 = result.Player2.Characters.Clone()
	m.Turn++
	m.LastActivity = now
	return nil
}

func (m *MatchState) Complete(winner string, now time.Time) error {
	if m.Status != StatusInProgress {
		return fmt.Errorf("%w: cannot complete match in %s", ErrInvalidStateTransition, m.Status)
	}
	m.Status = StatusCompleted
	m.Winner = winner
	m.LastActivity = now
	return nil
}

// IdleSince reports whether no activity happened after cutoff while in progress.
func (m *MatchState) IdleSince(cutoff time.Time) bool {
	return m.Status == StatusInProgress && m.LastActivity.Before(cutoff)
}
