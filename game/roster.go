package game

import "fmt"

// Roster is one player's ordered, fixed-size set of characters. Index is identity.
type Roster []Character

func (r Roster) Clone() Roster {
	if r == nil {
		return nil
	}
	out := make(Roster, len(r))
	copy(out, r)
	return out
}

// Defeated reports whether every character on the roster is down.
func (r Roster) Defeated() bool {
	if len(r) == 0 {
		return false
	}
	for _, c := range r {
		if !c.Defeated() {
			return false
		}
	}
	return true
}

// Grid bounds the positions characters may occupy.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (g Grid) Contains(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.Width && p.Y < g.Height
}

// Side identifies a player slot inside a match.
type Side int

const (
	Player1 Side = iota
	Player2
)

func (s Side) String() string {
	if s == Player1 {
		return "player_1"
	}
	return "player_2"
}

func (s Side) Opponent() Side {
	return 1 - s
}

// SideSnapshot is the frozen state of one roster inside a TurnResult.
type SideSnapshot struct {
	Characters Roster `json:"characters"`
}

// TurnResult is the immutable record of both rosters after one accepted turn.
type TurnResult struct {
	Player1 SideSnapshot `json:"player_1"`
	Player2 SideSnapshot `json:"player_2"`
}

func (t TurnResult) side(s Side) Roster {
	if s == Player1 {
		return t.Player1.Characters
	}
	return t.Player2.Characters
}

// Rules carries the match configuration the validator and resolver consult.
type Rules struct {
	RosterSize   int
	Grid         Grid
	MoveRange    int
	AttackDamage int
}

// DefaultRules mirrors the stock 3v3 layout.
var DefaultRules = Rules{
	RosterSize:   3,
	Grid:         Grid{Width: 16, Height: 10},
	MoveRange:    3,
	AttackDamage: 10,
}

// ValidateRoster checks size, character invariants and grid placement.
func (r Rules) ValidateRoster(side Side, roster Roster) error {
	if len(roster) != r.RosterSize {
		return fmt.Errorf("%w: %s has %d characters, want %d", ErrInvalidCharacterState, side, len(roster), r.RosterSize)
	}
	for i, c := range roster {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%s character %d: %w", side, i, err)
		}
		if !r.Grid.Contains(c.Position) {
			return fmt.Errorf("%w: %s character %d outside %dx%d grid", ErrInvalidCharacterState, side, i, r.Grid.Width, r.Grid.Height)
		}
	}
	return nil
}
