package payments

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// IntentRequest is what an order needs charged now: its payment_amount in
// minor units, never the full total for a deposit order.
type IntentRequest struct {
	OrderID     string
	AmountCents int64
	Currency    string // lower-case ISO code
	Metadata    map[string]string
}

// IdempotencyKey is stable per order and amount, so a buyer pressing pay twice
// gets the same intent back from Stripe rather than a second charge.
func (r IntentRequest) IdempotencyKey() string {
	return fmt.Sprintf("order-%s-%d", r.OrderID, r.AmountCents)
}

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// IntentCreator opens a PaymentIntent with the provider.
type IntentCreator interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}

// StripeIntentCreator talks to Stripe. Without a secret key it answers 501 so
// environments without payments fall back to the admin confirm-payment route.
type StripeIntentCreator struct {
	SecretKey string
}

func (s *StripeIntentCreator) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if s.SecretKey == "" {
		return nil, fiber.NewError(fiber.StatusNotImplemented, "Card payments are not configured; use manual payment confirmation")
	}
	stripe.Key = s.SecretKey
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String("caskmarket order " + req.OrderID),
		Metadata:    req.Metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey())
	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
