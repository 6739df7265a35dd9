package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for the request counters, read back by the health report.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"
	// KeyReqByArea is a hash of area (listings, reservations, orders, admin/fees...) to request count.
	KeyReqByArea = "health:global:req_by_area"
)

const apiPrefix = "/api/v1/"

// RequestArea buckets a path by its first resource segment under /api/v1,
// keeping the admin prefix so moderation traffic is visible on its own.
// Paths outside the API report "other".
func RequestArea(path string) string {
	if !strings.HasPrefix(path, apiPrefix) {
		return "other"
	}
	parts := strings.SplitN(strings.TrimPrefix(path, apiPrefix), "/", 3)
	if parts[0] == "admin" && len(parts) > 1 && parts[1] != "" {
		return "admin/" + parts[1]
	}
	if parts[0] == "" {
		return "other"
	}
	return parts[0]
}

// HealthMarker counts traffic in Redis. Health and favicon requests are not counted.
// Redis failures never fail the request.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		ctx := context.Background()
		last, _ := json.Marshal(map[string]interface{}{
			"time":     start.UTC(),
			"method":   c.Method(),
			"path":     c.OriginalURL(),
			"trace_id": GetTraceID(c),
		})
		pipe := rdb.Pipeline()
		pipe.Set(ctx, KeyLastReq, last, 0)
		pipe.Incr(ctx, KeyReqTotal)
		pipe.HIncrBy(ctx, KeyReqByArea, RequestArea(path), 1)
		_, _ = pipe.Exec(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusFor(err)
		}
		pipe = rdb.Pipeline()
		pipe.Incr(ctx, KeyResCount)
		pipe.IncrByFloat(ctx, KeyResTime, float64(time.Since(start).Milliseconds()))
		if status >= fiber.StatusInternalServerError {
			pipe.Incr(ctx, KeyReqErrors)
		}
		_, _ = pipe.Exec(ctx)
		return err
	}
}
