package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type errorMapping struct {
	target  error
	code    int
	message string
	logged  bool
}

// errorMappings is checked in order; the first errors.Is match wins.
var errorMappings = []errorMapping{
	{domain.ErrUnauthenticated, fiber.StatusUnauthorized, "Unauthorized", false},
	{domain.ErrForbidden, fiber.StatusForbidden, "User is Forbidden from performing this action", true},
	{domain.ErrNotFound, fiber.StatusNotFound, "Resource not found", false},
	{domain.ErrValidation, fiber.StatusBadRequest, "", false},
	{domain.ErrBelowMinimum, fiber.StatusBadRequest, "", false},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "", false},
	{domain.ErrListingNotTradable, fiber.StatusConflict, "Listing is not available for trading", false},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "", true},
	{domain.ErrExpired, fiber.StatusGone, "Reservation has expired; ask an admin to extend it", false},
	{domain.ErrMixedInventoryType, fiber.StatusUnprocessableEntity, "All items in an order must share one inventory type", false},
	{domain.ErrMixedCurrency, fiber.StatusUnprocessableEntity, "All items in an order must share one currency", false},
}

const errorLogSize = 50

// statusFor is the HTTP status the error handler will answer with for err.
func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.code
		}
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler is the global error handler without an error log sink.
var ErrorHandler = NewErrorHandler(nil)

// NewErrorHandler maps domain errors to the standard error format. Unmapped
// errors become a generic 500, are logged with the trace id and, when rdb is
// set, are pushed onto the health error log.
func NewErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		traceID := GetTraceID(c)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return response.Error(c, fe.Message, fe.Code, nil)
		}

		for _, m := range errorMappings {
			if !errors.Is(err, m.target) {
				continue
			}
			message := m.message
			if message == "" {
				message = err.Error()
			}
			if m.logged {
				log.Warn().Err(err).Str("trace_id", traceID).Str("path", c.Path()).Msg("request rejected")
			}
			return response.Error(c, message, m.code, map[string]interface{}{"reason": err.Error()})
		}

		log.Error().Err(err).Str("trace_id", traceID).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
		if rdb != nil {
			entry, _ := json.Marshal(map[string]interface{}{
				"time":     time.Now().UTC(),
				"path":     c.OriginalURL(),
				"method":   c.Method(),
				"message":  err.Error(),
				"trace_id": traceID,
			})
			ctx := context.Background()
			rdb.LPush(ctx, KeyErrorLog, entry)
			rdb.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, map[string]interface{}{"trace_id": traceID})
	}
}
