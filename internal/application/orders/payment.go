package orders

import (
	"context"
	"fmt"

	"caskmarket-backend/internal/constants"
	"caskmarket-backend/internal/domain"

	"github.com/google/uuid"
)

// PaymentDue returns an order the buyer may start paying for, with the amount
// due now in minor units.
func (s *Service) PaymentDue(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, int64, error) {
	o, err := loadOrder(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, 0, err
	}
	if err := s.authz().Authorize(actor, constants.PayOrder, resourceOf(o)); err != nil {
		return nil, 0, err
	}
	if o.Status != domain.OrderPaymentPending {
		return nil, 0, fmt.Errorf("%w: order is %s", domain.ErrInvalidTransition, o.Status)
	}
	return o, AmountCents(o), nil
}

// AmountCents is the order's payment amount in minor units.
func AmountCents(o *domain.Order) int64 {
	return o.PaymentAmount.Shift(2).Round(0).IntPart()
}
