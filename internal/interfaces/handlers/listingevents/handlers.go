package listingevents

import (
	lesvc "caskmarket-backend/internal/application/listingevents"
	"caskmarket-backend/internal/middleware"
	"caskmarket-backend/internal/pkg/request"
	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *lesvc.Service
}

// GET /api/v1/listings/:id/events
func (h *Handlers) GetListingEvents(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	events, err := h.Service.GetListingEvents(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return response.List(c, "Listing events fetched successfully", events, len(events))
}
