// Package request holds small helpers shared by the HTTP handlers.
package request

import (
	"fmt"
	"strings"

	"caskmarket-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UUIDParam parses a path parameter as a UUID.
func UUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := c.Params(name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrValidation, name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s format", domain.ErrValidation, name)
	}
	return id, nil
}

// Body decodes a JSON body into out, reporting malformed input as a validation error.
func Body(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	return nil
}

// BoolQuery reads a boolean query flag ("true", "1", "yes").
func BoolQuery(c *fiber.Ctx, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
