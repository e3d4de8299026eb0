package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"skirmish-server/logging"
)

const (
	LocalUserID    = "user_id"
	LocalAuthError = "auth_error"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserContextMiddleware attaches the caller's user id when a valid bearer
// token is presented. It never rejects; handlers decide when a missing
// identity matters.
func UserContextMiddleware(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			c.Locals(LocalAuthError, "empty bearer token")
			return c.Next()
		}

		userID, err := tokens.Verify(token)
		if err != nil {
			logging.Debug("rejected bearer token", zap.String("path", c.Path()), zap.Error(err))
			c.Locals(LocalAuthError, err.Error())
			return c.Next()
		}

		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

// RequireUser rejects requests without an authenticated user.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid credentials.",
			})
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// AuthError returns why a presented credential was ignored, or "".
func AuthError(c *fiber.Ctx) string {
	reason, _ := c.Locals(LocalAuthError).(string)
	return reason
}
