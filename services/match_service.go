package services

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"skirmish-server/game"
	"skirmish-server/logging"
	"skirmish-server/middleware"
	"skirmish-server/models"
	"skirmish-server/store"
)

type MatchService struct {
	Matches *store.MatchStore
	Meta    *store.MetaStore
	Engine  *game.Engine
}

func NewMatchService(matches *store.MatchStore, meta *store.MetaStore, engine *game.Engine) *MatchService {
	return &MatchService{Matches: matches, Meta: meta, Engine: engine}
}

type characterRequest struct {
	Position game.Position `json:"position"`
	Health   game.Health   `json:"health"`
}

type rosterRequest struct {
	Characters []characterRequest `json:"characters"`
}

func (r rosterRequest) roster() (game.Roster, error) {
	roster := make(game.Roster, 0, len(r.Characters))
	for _, ch := range r.Characters {
		c, err := game.NewCharacter(ch.Position, ch.Health.Current, ch.Health.Max)
		if err != nil {
			return nil, err
		}
		roster = append(roster, c)
	}
	return roster, nil
}

// CreateMatch creates a PENDING match owned by the caller.
func (s *MatchService) CreateMatch(c *fiber.Ctx) error {
	var req struct {
		Name    string         `json:"name"`
		Player1 *rosterRequest `json:"player_1"`
		Player2 *rosterRequest `json:"player_2"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Player1 == nil || req.Player2 == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "player_1 and player_2 rosters are required"})
	}

	p1, err := req.Player1.roster()
	if err != nil {
		return respondEngineError(c, err, "create")
	}
	p2, err := req.Player2.roster()
	if err != nil {
		return respondEngineError(c, err, "create")
	}

	state, err := game.NewMatchState(uuid.NewString(), middleware.UserID(c), s.Engine.Rules(), p1, p2)
	if err != nil {
		return respondEngineError(c, err, "create")
	}

	row, err := s.Matches.Create(c.UserContext(), req.Name, state)
	if err != nil {
		logging.Error("create match", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create match"})
	}

	logging.Info("match created", zap.String("match_id", row.ID), zap.String("user_id", row.OwnerID))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Match created.",
		"uuid":    row.ID,
		"slug":    row.Slug,
	})
}

// StartMatch moves a PENDING match to IN_PROGRESS.
func (s *MatchService) StartMatch(c *fiber.Ctx) error {
	identity := game.Identity{UserID: middleware.UserID(c)}
	state, err := s.Engine.StartMatch(c.UserContext(), c.Params("id"), identity)
	if err != nil {
		return respondEngineError(c, err, "start")
	}
	return c.JSON(fiber.Map{
		"message": "Match started.",
		"uuid":    state.ID,
		"status":  state.Status,
	})
}

// ownedMatch applies lookup, authentication and ownership in that order.
func (s *MatchService) ownedMatch(c *fiber.Ctx) (*models.Match, error) {
	row, err := s.Matches.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	userID := middleware.UserID(c)
	if userID == "" {
		return nil, game.ErrUnauthenticated
	}
	if row.OwnerID != userID {
		return nil, game.ErrForbidden
	}
	return row, nil
}

func (s *MatchService) GetMatch(c *fiber.Ctx) error {
	row, err := s.ownedMatch(c)
	if err != nil {
		return respondEngineError(c, err, "view")
	}
	state, err := store.StateOf(row)
	if err != nil {
		return respondEngineError(c, err, "view")
	}
	return c.JSON(fiber.Map{
		"uuid":     row.ID,
		"name":     row.Name,
		"slug":     row.Slug,
		"status":   row.Status,
		"turn":     row.Turn,
		"winner":   row.Winner,
		"grid":     state.Grid,
		"player_1": game.SideSnapshot{Characters: state.Player1},
		"player_2": game.SideSnapshot{Characters: state.Player2},
	})
}

// GetTurns returns the match's TurnResults in acceptance order.
func (s *MatchService) GetTurns(c *fiber.Ctx) error {
	row, err := s.ownedMatch(c)
	if err != nil {
		return respondEngineError(c, err, "view")
	}
	turns, err := s.Meta.Turns(c.UserContext(), row.ID)
	if err != nil {
		logging.Error("load turns", zap.String("match_id", row.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load turns"})
	}
	return c.JSON(fiber.Map{"turns": turns})
}
