package orders

import (
	"fmt"
	"strings"

	ordersvc "caskmarket-backend/internal/application/orders"
	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/middleware"
	"caskmarket-backend/internal/pkg/constants"
	"caskmarket-backend/internal/pkg/request"
	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader lets a client retry checkout without creating a second order.
const IdempotencyKeyHeader = "Idempotency-Key"

type Handlers struct {
	Service *ordersvc.Service
}

// POST /api/v1/orders/checkout
func (h *Handlers) Checkout(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var body struct {
		Items []struct {
			ListingID string `json:"listing_id"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
	}
	if err := request.Body(c, &body); err != nil {
		return err
	}
	in := ordersvc.CheckoutInput{Items: make([]ordersvc.CartItem, 0, len(body.Items))}
	for i, it := range body.Items {
		id, err := uuid.Parse(it.ListingID)
		if err != nil {
			return fmt.Errorf("%w: items[%d].listing_id is invalid", domain.ErrValidation, i)
		}
		in.Items = append(in.Items, ordersvc.CartItem{ListingID: id, Quantity: it.Quantity})
	}
	if key := strings.TrimSpace(c.Get(IdempotencyKeyHeader)); key != "" {
		in.ExternalID = &key
	}
	order, err := h.Service.Checkout(c.UserContext(), actor, in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Order created successfully", order, nil)
}

// POST /api/v1/reservations/:id/order
func (h *Handlers) CreateFromReservation(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Service.CreateFromReservation(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Order created successfully", order, nil)
}

func filterFrom(c *fiber.Ctx) ordersvc.ListFilter {
	return ordersvc.ListFilter{Status: domain.OrderStatus(c.Query("status"))}
}

// GET /api/v1/orders: buyers see their orders, sellers see orders holding their lines.
func (h *Handlers) ListOrders(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	var orders []domain.Order
	switch actor.Role {
	case constants.Seller:
		orders, err = h.Service.ListForSeller(c.UserContext(), actor, filterFrom(c))
	case constants.Admin:
		orders, err = h.Service.ListAll(c.UserContext(), actor, filterFrom(c))
	default:
		orders, err = h.Service.ListForBuyer(c.UserContext(), actor, filterFrom(c))
	}
	if err != nil {
		return err
	}
	return response.List(c, "Orders fetched successfully", orders, len(orders))
}

// GET /api/v1/admin/orders
func (h *Handlers) ListAllOrders(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	orders, err := h.Service.ListAll(c.UserContext(), actor, filterFrom(c))
	if err != nil {
		return err
	}
	return response.List(c, "Orders fetched successfully", orders, len(orders))
}

// GET /api/v1/orders/:id
func (h *Handlers) GetOrder(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Service.Get(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return response.Success(c, "Order fetched successfully", order, nil)
}

// GET /api/v1/orders/:id/history
func (h *Handlers) GetHistory(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	events, err := h.Service.History(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return response.List(c, "Order history fetched successfully", events, len(events))
}

// GET /api/v1/orders/:id/ledger
func (h *Handlers) GetLedger(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.Service.LedgerEntries(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return response.List(c, "Ledger entries fetched successfully", entries, len(entries))
}

type transitionFunc func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Order, error)

// transition wraps the order state changes that share the same request shape.
func (h *Handlers) transition(message string, fn transitionFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := middleware.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := request.UUIDParam(c, "id")
		if err != nil {
			return err
		}
		order, err := fn(c, actor, id)
		if err != nil {
			return err
		}
		return response.Success(c, message, order, nil)
	}
}

// POST /api/v1/orders/:id/confirm-receipt
func (h *Handlers) ConfirmReceipt() fiber.Handler {
	return h.transition("Receipt confirmed", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.Service.MarkDelivered(c.UserContext(), actor, id)
	})
}

// POST /api/v1/admin/orders/:id/confirm-payment
func (h *Handlers) ConfirmPayment() fiber.Handler {
	return h.transition("Payment confirmed", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.Service.ConfirmPayment(c.UserContext(), actor, id)
	})
}

// POST /api/v1/admin/orders/:id/dispatch
func (h *Handlers) Dispatch() fiber.Handler {
	return h.transition("Order dispatched", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		var body struct {
			Carrier           string `json:"carrier"`
			TrackingReference string `json:"tracking_reference"`
		}
		if err := request.Body(c, &body); err != nil {
			return nil, err
		}
		return h.Service.MarkDispatched(c.UserContext(), actor, id, body.Carrier, body.TrackingReference)
	})
}

// POST /api/v1/admin/orders/:id/deliver
func (h *Handlers) Deliver() fiber.Handler {
	return h.transition("Order delivered", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.Service.MarkDelivered(c.UserContext(), actor, id)
	})
}

// POST /api/v1/admin/orders/:id/release
func (h *Handlers) Release() fiber.Handler {
	return h.transition("Funds released to seller", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		return h.Service.Release(c.UserContext(), actor, id)
	})
}

// POST /api/v1/admin/orders/:id/refund
func (h *Handlers) Refund() fiber.Handler {
	return h.transition("Order refunded", func(c *fiber.Ctx, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
		var body struct {
			Reason string `json:"reason"`
		}
		if len(c.Body()) > 0 {
			if err := request.Body(c, &body); err != nil {
				return nil, err
			}
		}
		return h.Service.Refund(c.UserContext(), actor, id, body.Reason)
	})
}
