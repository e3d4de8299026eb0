package services

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"skirmish-server/logging"
	"skirmish-server/models"
	"skirmish-server/store"
)

const minPasswordLength = 8

// AuthService is the minimal register/login collaborator that hands out
// identities for the match endpoints.
type AuthService struct {
	Users    *store.UserStore
	Tokens   *TokenService
	HashCost int
}

func NewAuthService(users *store.UserStore, tokens *TokenService) *AuthService {
	return &AuthService{
		Users:    users,
		Tokens:   tokens,
		HashCost: bcrypt.DefaultCost,
	}
}

// normalize case-folds identifiers. Casers carry state, so one per call.
func (s *AuthService) normalize(v string) string {
	return cases.Fold().String(strings.TrimSpace(v))
}

// Register creates a user account.
func (s *AuthService) Register(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	email := s.normalize(req.Email)
	username := s.normalize(req.Username)
	if !strings.Contains(email, "@") || username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A valid email and username are required."})
	}
	if len(req.Password) < minPasswordLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Password must be at least 8 characters."})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.HashCost)
	if err != nil {
		logging.Error("hash password", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register user"})
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.Users.Create(c.UserContext(), user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email or username already registered."})
		}
		logging.Error("create user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register user"})
	}

	logging.Info("user registered", zap.String("user_id", user.ID))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login exchanges credentials for an access token.
func (s *AuthService) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := s.Users.FindByEmail(c.UserContext(), s.normalize(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password."})
		}
		logging.Error("find user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password."})
	}

	token, err := s.Tokens.Issue(user)
	if err != nil {
		logging.Error("issue token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to issue token"})
	}
	return c.JSON(fiber.Map{"access_token": token})
}
