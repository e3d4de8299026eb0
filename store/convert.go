package store

import (
	"encoding/json"
	"fmt"
	"time"

	"skirmish-server/game"
	"skirmish-server/models"
)

// StateOf converts an already loaded record without another query.
func StateOf(row *models.Match) (*game.MatchState, error) {
	return toState(row)
}

func toState(row *models.Match) (*game.MatchState, error) {
	var p1, p2 game.Roster
	if err := json.Unmarshal([]byte(row.Player1), &p1); err != nil {
		return nil, fmt.Errorf("decode player_1 roster of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Player2), &p2); err != nil {
		return nil, fmt.Errorf("decode player_2 roster of %s: %w", row.ID, err)
	}
	state := &game.MatchState{
		ID:      row.ID,
		Owner:   row.OwnerID,
		Status:  game.Status(row.Status),
		Grid:    game.Grid{Width: row.GridWidth, Height: row.GridHeight},
		Player1: p1,
		Player2: p2,
		Turn:    row.Turn,
		Winner:  row.Winner,
	}
	if row.LastActivityAt != nil {
		state.LastActivity = *row.LastActivityAt
	}
	return state, nil
}

// stateColumns is the column set SaveMatch writes back.
func stateColumns(state *game.MatchState) (map[string]any, error) {
	p1, err := json.Marshal(state.Player1)
	if err != nil {
		return nil, err
	}
	p2, err := json.Marshal(state.Player2)
	if err != nil {
		return nil, err
	}
	var lastActivity *time.Time
	if !state.LastActivity.IsZero() {
		t := state.LastActivity
		lastActivity = &t
	}
	return map[string]any{
		"status":           string(state.Status),
		"player_1":         string(p1),
		"player_2":         string(p2),
		"turn":             state.Turn,
		"winner":           state.Winner,
		"last_activity_at": lastActivity,
	}, nil
}
