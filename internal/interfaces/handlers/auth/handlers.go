package auth

import (
	"caskmarket-backend/internal/middleware"
	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers expose the shared session. Login lives in the identity service,
// which writes the session this API reads.
type Handlers struct {
	Rdb *redis.Client
}

// Me GET /api/v1/auth/me returns the current session user in standard success format.
func (h *Handlers) Me(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		if middleware.GetSessionID(c) != "" {
			log.Info().Str("path", "/auth/me").Err(err).
				Msg("auth/me: session id present but no usable user in session data")
		}
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{
		"user": fiber.Map{"user_id": actor.UserID, "role": actor.Role},
	}, nil)
}

// Logout DELETE /api/v1/auth/logout destroys the session key and clears the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if sessionID := middleware.GetSessionID(c); sessionID != "" {
		if err := h.Rdb.Del(c.UserContext(), middleware.SessionRedisPrefix+sessionID).Err(); err != nil {
			log.Warn().Err(err).Msg("auth/logout: session delete failed")
		}
	}
	c.ClearCookie(middleware.SessionCookieName)
	return response.Success(c, "Logged out successfully", nil, nil)
}

// LogoutAll DELETE /api/v1/auth/sessions ends every session of the current user.
func (h *Handlers) LogoutAll(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	n, err := DestroyUserSessions(c.UserContext(), h.Rdb, actor.UserID.String())
	if err != nil {
		return err
	}
	if sessionID := middleware.GetSessionID(c); sessionID != "" {
		h.Rdb.Del(c.UserContext(), middleware.SessionRedisPrefix+sessionID)
	}
	c.ClearCookie(middleware.SessionCookieName)
	log.Info().Str("user_id", actor.UserID.String()).Int64("sessions", n).Msg("auth: all sessions destroyed")
	return response.Success(c, "All sessions ended", fiber.Map{"sessions_ended": n}, nil)
}
