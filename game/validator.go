package game

import "fmt"

// Stage names one step of the turn validation pipeline.
type Stage string

const (
	StageLookup       Stage = "lookup"
	StageAuthenticate Stage = "authenticate"
	StageOwnership    Stage = "ownership"
	StageLifecycle    Stage = "lifecycle"
	StagePayload      Stage = "payload"
)

// Identity is the caller as established by the transport. The zero value is anonymous.
type Identity struct {
	UserID string
}

func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// MatchLoader fetches a match, returning ErrMatchNotFound when absent.
type MatchLoader interface {
	LoadMatch(id string) (*MatchState, error)
}

type TurnRequest struct {
	MatchID  string
	Identity Identity
	Payload  []byte
}

// ValidatedTurn is what survives the pipeline: the loaded match and typed actions.
type ValidatedTurn struct {
	State      *MatchState
	Submission TurnSubmission
}

type turnCheck struct {
	req        TurnRequest
	loader     MatchLoader
	state      *MatchState
	submission TurnSubmission
}

type stage struct {
	name Stage
	run  func(v Validator, t *turnCheck) error
}

// turnStages is evaluated in order; the first failure wins.
var turnStages = []stage{
	{StageLookup, stageLookup},
	{StageAuthenticate, stageAuthenticate},
	{StageOwnership, stageOwnership},
	{StageLifecycle, stageLifecycle},
	{StagePayload, stagePayload},
}

type Validator struct {
	Rules Rules
}

// Validate runs every stage against req.
func (v Validator) Validate(loader MatchLoader, req TurnRequest) (*ValidatedTurn, error) {
	t, err := v.run(loader, req, StagePayload)
	if err != nil {
		return nil, err
	}
	return &ValidatedTurn{State: t.state, Submission: t.submission}, nil
}

// Authorize runs the pipeline through ownership only. Used by lifecycle
// operations that carry no turn payload.
func (v Validator) Authorize(loader MatchLoader, matchID string, identity Identity) (*MatchState, error) {
	t, err := v.run(loader, TurnRequest{MatchID: matchID, Identity: identity}, StageOwnership)
	if err != nil {
		return nil, err
	}
	return t.state, nil
}

func (v Validator) run(loader MatchLoader, req TurnRequest, last Stage) (*turnCheck, error) {
	t := &turnCheck{req: req, loader: loader}
	for _, s := range turnStages {
		if err := s.run(v, t); err != nil {
			return nil, &StageError{Stage: s.name, Err: err}
		}
		if s.name == last {
			break
		}
	}
	return t, nil
}

func stageLookup(_ Validator, t *turnCheck) error {
	if t.req.MatchID == "" {
		return ErrMatchNotFound
	}
	state, err := t.loader.LoadMatch(t.req.MatchID)
	if err != nil {
		return err
	}
	t.state = state
	return nil
}

func stageAuthenticate(_ Validator, t *turnCheck) error {
	if !t.req.Identity.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func stageOwnership(_ Validator, t *turnCheck) error {
	if t.state.Owner != t.req.Identity.UserID {
		return ErrForbidden
	}
	return nil
}

func stageLifecycle(_ Validator, t *turnCheck) error {
	if t.state.Status != StatusInProgress {
		return fmt.Errorf("%w: status %s", ErrInvalidMatchState, t.state.Status)
	}
	return nil
}

func stagePayload(v Validator, t *turnCheck) error {
	sub, err := DecodeSubmission(t.req.Payload)
	if err != nil {
		return err
	}
	for _, side := range []Side{Player1, Player2} {
		actions := sub.Side(side)
		roster := t.state.Roster(side)
		if len(actions) != len(roster) {
			return fmt.Errorf("%w: %s has %d actions for %d characters", ErrMalformedTurnData, side, len(actions), len(roster))
		}
		opponents := len(t.state.Roster(side.Opponent()))
		for i, a := range actions {
			switch a := a.(type) {
			case Move:
				if v.Rules.MoveRange > 0 && a.Delta.Steps() > v.Rules.MoveRange {
					return fmt.Errorf("%w: %s character %d moves %d steps, limit %d", ErrMalformedTurnData, side, i, a.Delta.Steps(), v.Rules.MoveRange)
				}
			case Attack:
				if a.Target < 0 || a.Target >= opponents {
					return fmt.Errorf("%w: %s character %d targets %d", ErrMalformedTurnData, side, i, a.Target)
				}
			}
		}
	}
	t.submission = sub
	return nil
}
