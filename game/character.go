package game

import "fmt"

// Position is a cell on the match grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p shifted by delta.
func (p Position) Add(delta Position) Position {
	return Position{X: p.X + delta.X, Y: p.Y + delta.Y}
}

// Steps is the Manhattan length of p when used as a delta.
func (p Position) Steps() int {
	return abs(p.X) + abs(p.Y)
}

type Health struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Character is one combatant. Values are copied, never shared between turns.
type Character struct {
	Position Position `json:"position"`
	Health   Health   `json:"health"`
	Action   string   `json:"action"`
}

// NewCharacter validates 0 <= current <= max and a non-negative position.
func NewCharacter(pos Position, current, max int) (Character, error) {
	c := Character{Position: pos, Health: Health{Current: current, Max: max}}
	if err := c.Validate(); err != nil {
		return Character{}, err
	}
	return c, nil
}

func (c Character) Validate() error {
	if c.Health.Current < 0 || c.Health.Current > c.Health.Max {
		return fmt.Errorf("%w: health %d/%d", ErrInvalidCharacterState, c.Health.Current, c.Health.Max)
	}
	if c.Position.X < 0 || c.Position.Y < 0 {
		return fmt.Errorf("%w: position (%d,%d)", ErrInvalidCharacterState, c.Position.X, c.Position.Y)
	}
	return nil
}

// Moved returns the character displaced by delta.
func (c Character) Moved(delta Position) Character {
	c.Position = c.Position.Add(delta)
	return c
}

// Damaged returns the character after taking amount damage, clamped at zero.
func (c Character) Damaged(amount int) Character {
	if amount <= 0 {
		return c
	}
	c.Health.Current -= amount
	if c.Health.Current < 0 {
		c.Health.Current = 0
	}
	return c
}

func (c Character) Defeated() bool {
	return c.Health.Current == 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
