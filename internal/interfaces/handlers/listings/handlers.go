package listings

import (
	listsvc "caskmarket-backend/internal/application/listings"
	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/middleware"
	"caskmarket-backend/internal/pkg/request"
	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *listsvc.Service
}

type createListingBody struct {
	Title             string          `json:"title"`
	Category          string          `json:"category"`
	Subcategory       *string         `json:"subcategory"`
	Packaging         string          `json:"packaging"`
	QuantityAvailable int             `json:"quantity_available"`
	MinQuantity       int             `json:"min_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Currency          string          `json:"currency"`
	InventoryType     string          `json:"inventory_type"`
}

// POST /api/v1/listings
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var body createListingBody
	if err := request.Body(c, &body); err != nil {
		return err
	}
	if body.MinQuantity == 0 {
		body.MinQuantity = 1
	}
	listing, err := h.Service.CreateListing(c.UserContext(), actor, listsvc.CreateListingInput{
		Title:             body.Title,
		Category:          body.Category,
		Subcategory:       body.Subcategory,
		Packaging:         domain.Packaging(body.Packaging),
		QuantityAvailable: body.QuantityAvailable,
		MinQuantity:       body.MinQuantity,
		UnitPrice:         body.UnitPrice,
		Currency:          body.Currency,
		InventoryType:     domain.InventoryType(body.InventoryType),
	})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Listing created successfully", listing, nil)
}

// GET /api/v1/listings/live
func (h *Handlers) GetLiveListings(c *fiber.Ctx) error {
	listings, err := h.Service.GetLiveListings(c.UserContext())
	if err != nil {
		return err
	}
	return response.List(c, "Listings fetched successfully", listings, len(listings))
}

// GET /api/v1/listings/mine
func (h *Handlers) GetSellerListings(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	listings, err := h.Service.GetSellerListings(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return response.List(c, "Seller listings fetched successfully", listings, len(listings))
}

// GET /api/v1/listings/:id
func (h *Handlers) GetListingByID(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	listing, err := h.Service.GetListingByID(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// PATCH /api/v1/listings/:id/visibility
func (h *Handlers) SetVisibility(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Visibility string `json:"visibility"`
	}
	if err := request.Body(c, &body); err != nil {
		return err
	}
	listing, err := h.Service.SetVisibility(c.UserContext(), actor, id, domain.Visibility(body.Visibility))
	if err != nil {
		return err
	}
	return response.Success(c, "Listing visibility updated", listing, nil)
}

// GET /api/v1/admin/listings?status=pending
func (h *Handlers) GetModerationQueue(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	listings, err := h.Service.GetListingsByStatus(c.UserContext(), actor, domain.ModerationStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return response.List(c, "Listings fetched successfully", listings, len(listings))
}

// POST /api/v1/admin/listings/:id/approve
func (h *Handlers) ApproveListing(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	listing, err := h.Service.ApproveListing(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, "Listing approved", listing, nil)
}

// POST /api/v1/admin/listings/:id/reject
func (h *Handlers) RejectListing(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := request.Body(c, &body); err != nil {
		return err
	}
	listing, err := h.Service.RejectListing(c.UserContext(), actor, id, body.Reason)
	if err != nil {
		return err
	}
	return response.Success(c, "Listing rejected", listing, nil)
}
