package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"skirmish-server/game"
	"skirmish-server/logging"
)

// respondEngineError maps engine error kinds to HTTP outcomes. verb names the
// attempted operation in user-facing messages ("update", "view").
func respondEngineError(c *fiber.Ctx, err error, verb string) error {
	status, msg := fiber.StatusInternalServerError, "Internal server error."
	switch {
	case errors.Is(err, game.ErrMatchNotFound):
		status, msg = fiber.StatusNotFound, "Match not found."
	case errors.Is(err, game.ErrUnauthenticated):
		status, msg = fiber.StatusUnauthorized, "Missing or invalid credentials."
	case errors.Is(err, game.ErrForbidden):
		status, msg = fiber.StatusForbidden, "Cannot "+verb+" matches owned by other users."
	case errors.Is(err, game.ErrInvalidMatchState):
		status, msg = fiber.StatusBadRequest, "Cannot "+verb+" matches that are not in progress."
	case errors.Is(err, game.ErrInvalidStateTransition):
		status, msg = fiber.StatusConflict, "Match cannot be started."
	case errors.Is(err, game.ErrMalformedTurnData),
		errors.Is(err, game.ErrUnknownActionKind),
		errors.Is(err, game.ErrMoveOutOfBounds),
		errors.Is(err, game.ErrInvalidCharacterState):
		status, msg = fiber.StatusUnprocessableEntity, err.Error()
	default:
		logging.Error("unexpected engine error", zap.String("path", c.Path()), zap.Error(err))
	}

	body := fiber.Map{"message": msg}
	var stageErr *game.StageError
	if errors.As(err, &stageErr) {
		body["stage"] = string(stageErr.Stage)
	}
	return c.Status(status).JSON(body)
}
