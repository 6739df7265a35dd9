package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	ordersvc "caskmarket-backend/internal/application/orders"
	"caskmarket-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	metaOrderID = "order_id"
	metaBuyerID = "buyer_id"

	eventPaymentIntentSucceeded = "payment_intent.succeeded"
)

type WebhookHandler struct {
	DB            *gorm.DB
	Orders        *ordersvc.Service
	WebhookSecret string
}

// HandleWebhook POST /api/v1/stripe/webhook: raw body, signature verification, then process.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get("Stripe-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Stripe webhook received empty body (ensure no global body parser consumes the webhook body)")
		return c.Status(400).SendString("Webhook Error: empty body")
	}
	if sig == "" || wh.WebhookSecret == "" {
		log.Warn().Bool("has_sig", sig != "").Bool("has_secret", wh.WebhookSecret != "").Msg("Stripe webhook signature verification failed")
		return c.Status(400).SendString("Webhook Error: missing signature or secret")
	}

	event, err := webhook.ConstructEventWithOptions(rawBody, sig, wh.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Stripe webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	if string(event.Type) == eventPaymentIntentSucceeded && event.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Warn().Err(err).Str("event_id", event.ID).Msg("Stripe webhook payment intent parse failed")
			return c.Status(200).SendString("ok")
		}
		// Domain failures still answer 200 so Stripe does not retry them.
		if err := wh.handlePaymentIntentSucceeded(c.UserContext(), &pi, event.ID, event.Data.Raw); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Str("payment_intent_id", pi.ID).Msg("payment confirmation failed")
		}
	}

	return c.Status(200).SendString("ok")
}

func (wh *WebhookHandler) handlePaymentIntentSucceeded(ctx context.Context, pi *stripe.PaymentIntent, eventID string, raw []byte) error {
	orderID, err := uuid.Parse(pi.Metadata[metaOrderID])
	if err != nil {
		log.Warn().Str("payment_intent_id", pi.ID).Msg("payment intent has no order_id metadata; skipping")
		return nil
	}

	var order domain.Order
	if err := wh.DB.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Str("order_id", orderID.String()).Msg("payment intent references unknown order")
			return nil
		}
		return err
	}

	recorded, err := wh.recordPayment(ctx, pi, eventID, raw, &order)
	if err != nil {
		return err
	}
	if !recorded {
		log.Info().Str("payment_intent_id", pi.ID).Msg("payment intent already processed")
	}

	due := ordersvc.AmountCents(&order)
	if pi.AmountReceived < due || !strings.EqualFold(string(pi.Currency), order.Currency) {
		log.Warn().
			Str("order_id", order.ID.String()).
			Int64("amount_received", pi.AmountReceived).
			Int64("amount_due", due).
			Str("currency", string(pi.Currency)).
			Msg("payment does not cover the amount due; order left in payment_pending")
		return nil
	}

	if _, err := wh.Orders.ConfirmPayment(ctx, domain.SystemActor, order.ID); err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("paid order could not be allocated; needs refund")
			return nil
		}
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("payment arrived for a closed order; needs refund")
			return nil
		}
		return err
	}
	return nil
}

// recordPayment stores the payment intent once. It reports false when the
// intent was already recorded.
func (wh *WebhookHandler) recordPayment(ctx context.Context, pi *stripe.PaymentIntent, eventID string, raw []byte, order *domain.Order) (bool, error) {
	db := wh.DB.WithContext(ctx)
	var existing domain.Payment
	err := db.Where("stripe_payment_intent_id = ?", pi.ID).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	payment := domain.Payment{
		StripePaymentIntentID: pi.ID,
		StripeEventID:         eventID,
		OrderID:               order.ID,
		BuyerID:               order.BuyerID,
		AmountPaidCents:       pi.AmountReceived,
		Currency:              strings.ToUpper(string(pi.Currency)),
		Status:                string(pi.Status),
		RawPaymentIntent:      datatypes.JSON(raw),
	}
	if err := db.Create(&payment).Error; err != nil {
		// A concurrent delivery of the same event won the insert.
		if db.Where("stripe_payment_intent_id = ?", pi.ID).First(&existing).Error == nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
