// handlers/match_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"skirmish-server/middleware"
	"skirmish-server/services"
)

// SetupMatchRoutes registers match and turn routes. Identity is attached
// but not enforced on routes where a missing match must win over a
// missing token; those handlers check it themselves.
func SetupMatchRoutes(app *fiber.App, tokens middleware.TokenVerifier, matchService *services.MatchService, turnService *services.TurnService) {
	withUser := middleware.UserContextMiddleware(tokens)

	secured := app.Group("/match", withUser)
	secured.Post("/new", middleware.RequireUser(), matchService.CreateMatch)
	secured.Post("/start/:id", matchService.StartMatch)
	secured.Get("/:id", matchService.GetMatch)

	turns := app.Group("/turn", withUser)
	turns.Post("/update/:id?", turnService.UpdateTurn)
	turns.Get("/:id", matchService.GetTurns)
}
