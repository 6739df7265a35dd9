package middleware

import (
	"strings"

	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	devPasswordHeader = "dev-password"
	corsAllowHeaders  = "Content-Type, " + devPasswordHeader + ", Idempotency-Key, " + traceIDHeader
	corsAllowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
)

// CORSConfig: origins ending with AllowedSuffix are trusted; any other origin
// must present DevPassword in the dev-password header.
type CORSConfig struct {
	AllowedSuffix string
	DevPassword   string
}

func (cfg CORSConfig) allows(c *fiber.Ctx, origin string) bool {
	if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
		// Browsers strip custom headers from preflights, so local dev may only preflight freely.
		if c.Method() == fiber.MethodOptions {
			return true
		}
	}
	if cfg.AllowedSuffix != "" && strings.HasSuffix(strings.ToLower(origin), strings.ToLower(cfg.AllowedSuffix)) {
		return true
	}
	return cfg.DevPassword != "" && c.Get(devPasswordHeader) == cfg.DevPassword
}

// CORS answers preflights itself and rejects disallowed origins with 403.
// Requests without an Origin (server-to-server, Stripe) pass straight through.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		if !cfg.allows(c, origin) {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
		}
		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		c.Set(fiber.HeaderAccessControlExposeHeaders, traceIDHeader)
		c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
		c.Vary(fiber.HeaderOrigin)
		if c.Method() == fiber.MethodOptions {
			c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
