package payments

import (
	"errors"
	"strings"

	ordersvc "caskmarket-backend/internal/application/orders"
	"caskmarket-backend/internal/middleware"
	"caskmarket-backend/internal/pkg/request"
	"caskmarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Orders  *ordersvc.Service
	Intents IntentCreator
}

// PayOrder POST /api/v1/orders/:id/pay creates a Stripe PaymentIntent for the
// amount due now. Escrow only moves when the webhook confirms the payment.
func (h *Handlers) PayOrder(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	order, cents, err := h.Orders.PaymentDue(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	if h.Intents == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "Card payments are not configured; use manual payment confirmation")
	}
	pi, err := h.Intents.CreateIntent(c.UserContext(), IntentRequest{
		OrderID:     order.ID.String(),
		AmountCents: cents,
		Currency:    strings.ToLower(order.Currency),
		Metadata: map[string]string{
			metaOrderID: order.ID.String(),
			metaBuyerID: order.BuyerID.String(),
		},
	})
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe
		}
		log.Error().Err(err).Str("order_id", order.ID.String()).Msg("stripe payment intent creation failed")
		return response.Error(c, "Payment provider unavailable", fiber.StatusBadGateway, nil)
	}
	log.Info().Str("order_id", order.ID.String()).Str("payment_intent_id", pi.ID).Int64("amount_cents", cents).Msg("payment intent created")
	return response.Success(c, "Payment intent created", fiber.Map{
		"order_id":          order.ID,
		"payment_intent_id": pi.ID,
		"client_secret":     pi.ClientSecret,
		"amount_cents":      cents,
		"currency":          order.Currency,
	}, nil)
}
