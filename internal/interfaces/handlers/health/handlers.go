package health

import (
	"encoding/json"
	"strconv"
	"time"

	healthsvc "caskmarket-backend/internal/application/health"
	"caskmarket-backend/internal/middleware"
	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	serviceName     = "caskmarket-api"
	maxErrorEntries = 50
)

// Handlers serve the unauthenticated /health routes. Reset and Errors are
// guarded by HealthAdminKey passed as ?key=.
type Handlers struct {
	Rdb            *redis.Client
	DB             healthsvc.DBPinger
	Probes         map[string]healthsvc.Probe
	HealthAdminKey string
}

func (h *Handlers) adminKeyOK(c *fiber.Ctx) bool {
	key := c.Query("key")
	return h.HealthAdminKey != "" && key == h.HealthAdminKey
}

var counterKeys = []string{
	middleware.KeyReqTotal,
	middleware.KeyReqErrors,
	middleware.KeyResTime,
	middleware.KeyResCount,
	middleware.KeyLastReq,
	middleware.KeyReqByArea,
	middleware.KeyErrorLog,
}

// Reset GET /health/reset?key= zeroes the traffic counters and restarts uptime.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	if !h.adminKeyOK(c) {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	ctx := c.UserContext()
	pipe := h.Rdb.TxPipeline()
	pipe.Del(ctx, counterKeys...)
	pipe.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON GET /health/json reports status, runtime, traffic and dependencies.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := healthsvc.CollectHealth(c.UserContext(), h.Rdb, h.DB, h.Probes)
	return c.JSON(fiber.Map{
		"service":      serviceName,
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Errors GET /health/errors?key=&limit= lists the most recent unexpected
// errors, newest first.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	if !h.adminKeyOK(c) {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	limit := c.QueryInt("limit", maxErrorEntries)
	if limit <= 0 || limit > maxErrorEntries {
		limit = maxErrorEntries
	}
	raw, err := h.Rdb.LRange(c.UserContext(), middleware.KeyErrorLog, 0, int64(limit-1)).Result()
	if err != nil {
		return err
	}
	entries := make([]map[string]interface{}, 0, len(raw))
	for _, s := range raw {
		var m map[string]interface{}
		if json.Unmarshal([]byte(s), &m) == nil {
			entries = append(entries, m)
		}
	}
	return response.List(c, "Recent errors", entries, len(entries))
}
