package reservations

import (
	"fmt"
	"time"

	ressvc "caskmarket-backend/internal/application/reservations"
	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/middleware"
	"caskmarket-backend/internal/pkg/constants"
	"caskmarket-backend/internal/pkg/request"
	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *ressvc.Service
}

// POST /api/v1/reservations
func (h *Handlers) CreateReservation(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var body struct {
		ListingID string `json:"listing_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := request.Body(c, &body); err != nil {
		return err
	}
	listingID, err := uuid.Parse(body.ListingID)
	if err != nil {
		return fmt.Errorf("%w: invalid listing_id", domain.ErrValidation)
	}
	view, err := h.Service.Create(c.UserContext(), actor, ressvc.CreateInput{ListingID: listingID, Quantity: body.Quantity})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Reservation created successfully", view, nil)
}

func filterFrom(c *fiber.Ctx) ressvc.ListFilter {
	return ressvc.ListFilter{
		Status:         domain.ReservationStatus(c.Query("status")),
		ExcludeExpired: request.BoolQuery(c, "exclude_expired"),
	}
}

// GET /api/v1/reservations: buyers see their own, sellers see those on their listings.
func (h *Handlers) ListReservations(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var views []ressvc.View
	switch actor.Role {
	case constants.Seller:
		views, err = h.Service.ListForSeller(c.UserContext(), actor, filterFrom(c))
	case constants.Admin:
		views, err = h.Service.ListAll(c.UserContext(), actor, filterFrom(c))
	default:
		views, err = h.Service.ListForBuyer(c.UserContext(), actor, filterFrom(c))
	}
	if err != nil {
		return err
	}
	return response.List(c, "Reservations fetched successfully", views, len(views))
}

// GET /api/v1/admin/reservations
func (h *Handlers) ListAllReservations(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	views, err := h.Service.ListAll(c.UserContext(), actor, filterFrom(c))
	if err != nil {
		return err
	}
	return response.List(c, "Reservations fetched successfully", views, len(views))
}

// GET /api/v1/reservations/:id
func (h *Handlers) GetReservation(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	view, err := h.Service.Get(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, "Reservation fetched successfully", view, nil)
}

// POST /api/v1/reservations/:id/cancel
func (h *Handlers) CancelReservation(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	view, err := h.Service.Cancel(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, "Reservation cancelled", view, nil)
}

// POST /api/v1/admin/reservations/:id/confirm
func (h *Handlers) ConfirmReservation(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	view, err := h.Service.Confirm(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, "Reservation confirmed", view, nil)
}

// POST /api/v1/admin/reservations/bulk-confirm
func (h *Handlers) BulkConfirm(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := request.Body(c, &body); err != nil {
		return err
	}
	if len(body.IDs) == 0 {
		return response.BadRequest(c, "ids must not be empty")
	}
	ids := make([]uuid.UUID, 0, len(body.IDs))
	for _, raw := range body.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.BadRequest(c, fmt.Sprintf("invalid reservation id: %s", raw))
		}
		ids = append(ids, id)
	}
	result, err := h.Service.BulkConfirm(c.UserContext(), actor, ids)
	if err != nil {
		return err
	}
	return response.Success(c, "Reservations processed", result, map[string]interface{}{
		"confirmed": len(result.Confirmed),
		"failed":    len(result.Failed),
	})
}

// POST /api/v1/admin/reservations/:id/extend
func (h *Handlers) ExtendReservation(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		ExtendedUntil time.Time `json:"extended_until"`
		Reason        string    `json:"reason"`
	}
	if err := request.Body(c, &body); err != nil {
		return err
	}
	if body.ExtendedUntil.IsZero() {
		return response.BadRequest(c, "extended_until is required")
	}
	view, err := h.Service.Extend(c.UserContext(), actor, id, body.ExtendedUntil, body.Reason)
	if err != nil {
		return err
	}
	return response.Success(c, "Reservation extended", view, nil)
}
