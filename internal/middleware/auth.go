package middleware

import (
	"fmt"

	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/pkg/constants"
	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a valid user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := CurrentActor(c); err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) *SessionUser {
	u, ok := c.Locals(userLocal).(SessionUser)
	if !ok {
		return nil
	}
	return &u
}

// SetUser places a user in Locals. Used by tests and trusted upstream hooks.
func SetUser(c *fiber.Ctx, u SessionUser) {
	c.Locals(userLocal, u)
}

// CurrentActor converts the session user into a domain.Actor.
func CurrentActor(c *fiber.Ctx) (domain.Actor, error) {
	u := GetUser(c)
	if u == nil {
		return domain.Actor{}, domain.ErrUnauthenticated
	}
	id, err := uuid.Parse(u.UserID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: malformed user id", domain.ErrUnauthenticated)
	}
	if !constants.IsValidRole(u.Role) {
		return domain.Actor{}, fmt.Errorf("%w: unknown role", domain.ErrUnauthenticated)
	}
	return domain.Actor{UserID: id, Role: u.Role}, nil
}
