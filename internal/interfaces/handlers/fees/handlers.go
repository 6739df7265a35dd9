package fees

import (
	feesvc "caskmarket-backend/internal/application/fees"
	"caskmarket-backend/internal/middleware"
	"caskmarket-backend/internal/pkg/request"
	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Handlers expose the platform fee table. Routes are admin-only via
// AuthorizePermission(ManageFees).
type Handlers struct {
	Service *feesvc.Service
}

// GET /api/v1/admin/fees
func (h *Handlers) ListFees(c *fiber.Ctx) error {
	rules, err := h.Service.List(c.UserContext())
	if err != nil {
		return err
	}
	return response.Success(c, "Platform fees fetched successfully", rules, map[string]interface{}{
		"count":                 len(rules),
		"fallback_fee_per_unit": feesvc.FallbackFeePerUnit.StringFixed(2),
	})
}

// PUT /api/v1/admin/fees
func (h *Handlers) UpsertFee(c *fiber.Ctx) error {
	var body struct {
		Category    string           `json:"category"`
		Subcategory *string          `json:"subcategory"`
		FeePerUnit  *decimal.Decimal `json:"fee_per_unit"`
	}
	if err := request.Body(c, &body); err != nil {
		return err
	}
	if body.FeePerUnit == nil {
		return response.BadRequest(c, "fee_per_unit is required")
	}
	rule, err := h.Service.Upsert(c.UserContext(), feesvc.UpsertInput{
		Category:    body.Category,
		Subcategory: body.Subcategory,
		FeePerUnit:  *body.FeePerUnit,
	})
	if err != nil {
		return err
	}
	actor, _ := middleware.CurrentActor(c)
	log.Info().
		Str("category", rule.Category).
		Str("fee_per_unit", rule.FeePerUnit.StringFixed(2)).
		Str("actor_id", actor.UserID.String()).
		Msg("platform fee updated")
	return response.Success(c, "Platform fee saved", rule, nil)
}
