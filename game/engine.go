package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"skirmish-server/logging"
)

// TurnsKey is the metadata key holding the ordered TurnResult sequence.
const TurnsKey = "turns"

// Tx is the unit of work the engine commits through. Everything written via a
// Tx lands atomically or not at all.
type Tx interface {
	MatchLoader
	SaveMatch(state *MatchState) error
	AppendMeta(matchID, key string, value any) error
}

// Store opens transactions. Implementations lock the loaded match row for the
// lifetime of the transaction where the backend supports it.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

// Engine validates, resolves and commits turns.
type Engine struct {
	store     Store
	locker    *Locker
	validator Validator
	rules     Rules
	now       func() time.Time
}

func NewEngine(store Store, rules Rules) *Engine {
	return &Engine{
		store:     store,
		locker:    NewLocker(),
		validator: Validator{Rules: rules},
		rules:     rules,
		now:       time.Now,
	}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

// SubmitTurn runs the validation pipeline, resolves the turn and commits the
// new match state together with the TurnResult appended under TurnsKey.
func (e *Engine) SubmitTurn(ctx context.Context, matchID string, identity Identity, payload []byte) (TurnResult, error) {
	unlock := e.locker.Lock(matchID)
	defer unlock()

	var result TurnResult
	err := e.store.Transaction(ctx, func(tx Tx) error {
		turn, err := e.validator.Validate(tx, TurnRequest{MatchID: matchID, Identity: identity, Payload: payload})
		if err != nil {
			return err
		}

		res, outcome, err := Resolve(turn.State, turn.Submission, e.rules)
		if err != nil {
			return err
		}

		now := e.now()
		next := turn.State.Clone()
		if err := next.ApplyTurn(res, now); err != nil {
			return err
		}
		if outcome.Finished {
			if err := next.Complete(outcome.Winner, now); err != nil {
				return err
			}
		}
		if err := tx.SaveMatch(next); err != nil {
			return fmt.Errorf("save match: %w", err)
		}
		if err := tx.AppendMeta(matchID, TurnsKey, res); err != nil {
			return fmt.Errorf("append turn: %w", err)
		}

		result = res
		logging.Info("turn accepted",
			zap.String("match_id", matchID),
			zap.String("user_id", identity.UserID),
			zap.Int("turn", next.Turn),
			zap.String("status", string(next.Status)),
		)
		return nil
	})
	if err != nil {
		logging.Warn("turn rejected",
			zap.String("match_id", matchID),
			zap.String("user_id", identity.UserID),
			zap.Error(err),
		)
		return TurnResult{}, err
	}
	return result, nil
}

// StartMatch moves an owned PENDING match to IN_PROGRESS.
func (e *Engine) StartMatch(ctx context.Context, matchID string, identity Identity) (*MatchState, error) {
	unlock := e.locker.Lock(matchID)
	defer unlock()

	var started *MatchState
	err := e.store.Transaction(ctx, func(tx Tx) error {
		state, err := e.validator.Authorize(tx, matchID, identity)
		if err != nil {
			return err
		}
		next := state.Clone()
		if err := next.Start(e.now()); err != nil {
			return err
		}
		if err := tx.SaveMatch(next); err != nil {
			return fmt.Errorf("save match: %w", err)
		}
		started = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Info("match started", zap.String("match_id", matchID), zap.String("user_id", identity.UserID))
	return started, nil
}

// CompleteIdle completes an IN_PROGRESS match with no activity since cutoff.
// It reports false when the match turned out to be active or already finished.
func (e *Engine) CompleteIdle(ctx context.Context, matchID string, cutoff time.Time) (bool, error) {
	unlock := e.locker.Lock(matchID)
	defer unlock()

	completed := false
	err := e.store.Transaction(ctx, func(tx Tx) error {
		state, err := tx.LoadMatch(matchID)
		if err != nil {
			return err
		}
		if !state.IdleSince(cutoff) {
			return nil
		}
		next := state.Clone()
		if err := next.Complete(WinnerNone, e.now()); err != nil {
			return err
		}
		if err := tx.SaveMatch(next); err != nil {
			return fmt.Errorf("save match: %w", err)
		}
		completed = true
		return nil
	})
	return completed, err
}
