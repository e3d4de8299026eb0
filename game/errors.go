package game

import "errors"

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrUnauthenticated        = errors.New("no valid credential")
	ErrForbidden              = errors.New("match owned by other users")
	ErrInvalidMatchState      = errors.New("match is not in progress")
	ErrMalformedTurnData      = errors.New("malformed turn data")
	ErrUnknownActionKind      = errors.New("unknown action kind")
	ErrInvalidCharacterState  = errors.New("invalid character state")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrMoveOutOfBounds        = errors.New("move out of bounds")
)

// StageError reports which validation stage rejected a turn.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
