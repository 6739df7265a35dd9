package orders

import (
	"context"
	"fmt"
	"strings"

	"caskmarket-backend/internal/constants"
	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/infrastructure/events"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// step describes one attempted transition.
type step struct {
	permission string
	to         domain.OrderStatus
	// noop reports whether the order is already where a retried request
	// wanted it; the call then succeeds without writing.
	noop func(o *domain.Order) bool
	// apply runs inside the transaction before the guarded status update and
	// may add columns to set.
	apply func(tx *gorm.DB, o *domain.Order, set map[string]interface{}) error
	data  map[string]interface{}
}

var timestampColumn = map[domain.OrderStatus]string{
	domain.OrderPaidInEscrow: "paid_at",
	domain.OrderDispatched:   "dispatched_at",
	domain.OrderDelivered:    "delivered_at",
	domain.OrderReleased:     "released_at",
	domain.OrderRefunded:     "refunded_at",
}

func (s *Service) transition(ctx context.Context, actor domain.Actor, id uuid.UUID, st step) (*domain.Order, error) {
	var (
		order   *domain.Order
		from    domain.OrderStatus
		changed bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		if err := s.authz().Authorize(actor, st.permission, resourceOf(o)); err != nil {
			return err
		}
		order = o
		from = o.Status
		if st.noop != nil && st.noop(o) {
			return nil
		}
		if !domain.CanTransition(o.Status, st.to) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, st.to)
		}

		now := s.now()
		set := map[string]interface{}{
			"status":     st.to,
			"updated_at": now,
		}
		if col, ok := timestampColumn[st.to]; ok {
			set[col] = now
		}
		if st.apply != nil {
			if err := st.apply(tx, o, set); err != nil {
				return err
			}
		}

		res := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", id, from).
			Updates(set)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order changed concurrently", domain.ErrInvalidTransition)
		}
		if err := recordEvent(tx, id, &from, st.to, actor, st.data); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		log.Info().Str("order_id", id.String()).Str("status", string(order.Status)).Msg("order transition already applied")
		return order, nil
	}

	updated, err := loadOrder(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("order_id", id.String()).
		Str("from", string(from)).
		Str("to", string(st.to)).
		Str("actor_id", actor.UserID.String()).
		Msg("order status changed")
	s.publish(ctx, events.EventOrderStatusChanged, updated, from, actor)
	return updated, nil
}

// ConfirmPayment is the payment signal: payment_pending -> paid_in_escrow with
// stock allocated for every line, all or nothing. On insufficient stock the
// order stays payment_pending. Signals for orders in escrow or in transit
// are ignored; a released or refunded order rejects them.
func (s *Service) ConfirmPayment(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, actor, id, step{
		permission: constants.ConfirmPayment,
		to:         domain.OrderPaidInEscrow,
		noop: func(o *domain.Order) bool {
			switch o.Status {
			case domain.OrderPaidInEscrow, domain.OrderDispatched, domain.OrderDelivered:
				return true
			}
			return false
		},
		apply: func(tx *gorm.DB, o *domain.Order, _ map[string]interface{}) error {
			return s.stock().Allocate(tx, o.ID, linesOf(o))
		},
	})
}

// MarkDispatched records the carrier handover. Both carrier and tracking
// reference are required.
func (s *Service) MarkDispatched(ctx context.Context, actor domain.Actor, id uuid.UUID, carrier, tracking string) (*domain.Order, error) {
	carrier = strings.TrimSpace(carrier)
	tracking = strings.TrimSpace(tracking)
	if carrier == "" || tracking == "" {
		return nil, fmt.Errorf("%w: carrier and tracking_reference are required", domain.ErrValidation)
	}
	return s.transition(ctx, actor, id, step{
		permission: constants.DispatchOrder,
		to:         domain.OrderDispatched,
		apply: func(_ *gorm.DB, _ *domain.Order, set map[string]interface{}) error {
			set["carrier"] = carrier
			set["tracking_reference"] = tracking
			return nil
		},
		data: map[string]interface{}{"carrier": carrier, "tracking_reference": tracking},
	})
}

// MarkDelivered is driven by an admin or by the buyer confirming receipt.
func (s *Service) MarkDelivered(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, actor, id, step{
		permission: constants.ConfirmReceipt,
		to:         domain.OrderDelivered,
	})
}

// Release pays the seller out of escrow. Irreversible.
func (s *Service) Release(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, actor, id, step{
		permission: constants.ReleaseOrder,
		to:         domain.OrderReleased,
	})
}

// Refund returns escrowed funds to the buyer and restores allocated stock
// exactly once. Refunding a refunded order is a no-op.
func (s *Service) Refund(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (*domain.Order, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, actor, id, step{
		permission: constants.RefundOrder,
		to:         domain.OrderRefunded,
		noop: func(o *domain.Order) bool {
			return o.Status == domain.OrderRefunded
		},
		apply: func(tx *gorm.DB, o *domain.Order, set map[string]interface{}) error {
			if reason != "" {
				set["refund_reason"] = reason
			}
			return s.stock().Restore(tx, o.ID, linesOf(o))
		},
		data: map[string]interface{}{"reason": reason},
	})
}
