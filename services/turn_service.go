package services

import (
	"github.com/gofiber/fiber/v2"

	"skirmish-server/game"
	"skirmish-server/middleware"
)

type TurnService struct {
	Engine *game.Engine
}

func NewTurnService(engine *game.Engine) *TurnService {
	return &TurnService{Engine: engine}
}

// UpdateTurn submits the next turn of a match.
func (s *TurnService) UpdateTurn(c *fiber.Ctx) error {
	identity := game.Identity{UserID: middleware.UserID(c)}
	result, err := s.Engine.SubmitTurn(c.UserContext(), c.Params("id"), identity, c.Body())
	if err != nil {
		return respondEngineError(c, err, "update")
	}
	return c.JSON(fiber.Map{
		"message": "Turn completed.",
		"turn":    result,
	})
}
