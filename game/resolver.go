package game

import "fmt"

// Outcome reports whether the resolved turn ended the match.
type Outcome struct {
	Finished bool
	Winner   string
}

// Resolve applies sub to state and returns the post-turn snapshot. state is not
// modified; committing the result is the caller's job.
//
// Movement resolves first, then every attack is computed against the moved
// rosters and all damage lands at once, so the order of characters never
// changes the result.
func Resolve(state *MatchState, sub TurnSubmission, rules Rules) (TurnResult, Outcome, error) {
	rosters := [2]Roster{state.Player1.Clone(), state.Player2.Clone()}
	damage := [2][]int{make([]int, len(rosters[0])), make([]int, len(rosters[1]))}

	for _, side := range []Side{Player1, Player2} {
		actions := sub.Side(side)
		if len(actions) != len(rosters[side]) {
			return TurnResult{}, Outcome{}, fmt.Errorf("%w: %s has %d actions for %d characters", ErrMalformedTurnData, side, len(actions), len(rosters[side]))
		}
		for i, action := range actions {
			c := rosters[side][i]
			if action == nil {
				return TurnResult{}, Outcome{}, fmt.Errorf("%w: %s character %d has no action", ErrUnknownActionKind, side, i)
			}
			c.Action = string(action.Kind())

			switch a := action.(type) {
			case Move:
				if c.Defeated() {
					break
				}
				moved := c.Moved(a.Delta)
				if !state.Grid.Contains(moved.Position) {
					return TurnResult{}, Outcome{}, fmt.Errorf("%w: %s character %d to (%d,%d)",
						ErrMoveOutOfBounds, side, i, moved.Position.X, moved.Position.Y)
				}
				c = moved
			case Attack:
				if a.Target < 0 || a.Target >= len(damage[side.Opponent()]) {
					return TurnResult{}, Outcome{}, fmt.Errorf("%w: %s character %d targets %d", ErrMalformedTurnData, side, i, a.Target)
				}
				if !c.Defeated() {
					damage[side.Opponent()][a.Target] += rules.AttackDamage
				}
			case Wait:
			default:
				return TurnResult{}, Outcome{}, fmt.Errorf("%w: %q", ErrUnknownActionKind, action.Kind())
			}
			rosters[side][i] = c
		}
	}

	for side := range rosters {
		for i, amount := range damage[side] {
			rosters[side][i] = rosters[side][i].Damaged(amount)
		}
	}

	result := TurnResult{
		Player1: SideSnapshot{Characters: rosters[Player1]},
		Player2: SideSnapshot{Characters: rosters[Player2]},
	}
	return result, outcomeOf(rosters[Player1], rosters[Player2]), nil
}

func outcomeOf(p1, p2 Roster) Outcome {
	down1, down2 := p1.Defeated(), p2.Defeated()
	switch {
	case down1 && down2:
		return Outcome{Finished: true, Winner: WinnerDraw}
	case down2:
		return Outcome{Finished: true, Winner: Player1.String()}
	case down1:
		return Outcome{Finished: true, Winner: Player2.String()}
	}
	return Outcome{}
}
