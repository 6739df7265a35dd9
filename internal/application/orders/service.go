package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"caskmarket-backend/internal/application/fees"
	"caskmarket-backend/internal/application/ledger"
	"caskmarket-backend/internal/application/policies"
	"caskmarket-backend/internal/constants"
	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/infrastructure/events"
	"caskmarket-backend/internal/pkg/trace"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const producerName = "caskmarket-api"

type Service struct {
	DB     *gorm.DB
	Ledger *ledger.Service
	Fees   *fees.Service
	Authz  policies.Authorizer
	Events events.Publisher
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) authz() policies.Authorizer {
	if s.Authz != nil {
		return s.Authz
	}
	return policies.RoleAuthorizer{}
}

func (s *Service) stock() *ledger.Service {
	if s.Ledger != nil {
		return s.Ledger
	}
	return &ledger.Service{DB: s.DB}
}

func (s *Service) feeSchedule(ctx context.Context) fees.Schedule {
	if s.Fees == nil {
		return fees.NewSchedule(nil)
	}
	return s.Fees.Load(ctx)
}

func resourceOf(o *domain.Order) *policies.Resource {
	return &policies.Resource{BuyerID: o.BuyerID, SellerIDs: o.SellerIDs()}
}

func linesOf(o *domain.Order) []ledger.Line {
	lines := make([]ledger.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, ledger.Line{ListingID: it.ListingID, Quantity: it.Quantity})
	}
	return lines
}

func loadOrder(tx *gorm.DB, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	if err := tx.Preload("Items").Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &o, nil
}

// Get returns one order visible to the actor.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
	o, err := loadOrder(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := s.authz().Authorize(actor, constants.ViewOrder, resourceOf(o)); err != nil {
		return nil, err
	}
	return o, nil
}

type ListFilter struct {
	Status domain.OrderStatus
}

// ListForBuyer returns orders placed by the actor.
func (s *Service) ListForBuyer(ctx context.Context, actor domain.Actor, f ListFilter) ([]domain.Order, error) {
	if err := s.authz().Authorize(actor, constants.ViewOrder, nil); err != nil {
		return nil, err
	}
	return s.list(s.DB.WithContext(ctx).Where("buyer_id = ?", actor.UserID), f)
}

// ListForSeller returns orders containing at least one of the actor's lines.
func (s *Service) ListForSeller(ctx context.Context, actor domain.Actor, f ListFilter) ([]domain.Order, error) {
	if err := s.authz().Authorize(actor, constants.ViewOrder, nil); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	sub := db.Model(&domain.OrderItem{}).Select("order_id").Where("seller_id = ?", actor.UserID)
	return s.list(db.Where("id IN (?)", sub), f)
}

func (s *Service) ListAll(ctx context.Context, actor domain.Actor, f ListFilter) ([]domain.Order, error) {
	if err := s.authz().Authorize(actor, constants.ListAllOrders, nil); err != nil {
		return nil, err
	}
	return s.list(s.DB.WithContext(ctx), f)
}

func (s *Service) list(q *gorm.DB, f ListFilter) ([]domain.Order, error) {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []domain.Order
	if err := q.Preload("Items").Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return out, nil
}

// History returns the order's applied status changes, oldest first.
func (s *Service) History(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]domain.OrderEvent, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	var evts []domain.OrderEvent
	if err := s.DB.WithContext(ctx).Where("order_id = ?", id).Order("created_at ASC").Find(&evts).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch order events: %w", err)
	}
	return evts, nil
}

// LedgerEntries returns the stock movements recorded for the order.
func (s *Service) LedgerEntries(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]domain.StockLedgerEntry, error) {
	o, err := loadOrder(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := s.authz().Authorize(actor, constants.ViewLedger, resourceOf(o)); err != nil {
		return nil, err
	}
	return s.stock().Entries(ctx, id)
}

func recordEvent(tx *gorm.DB, orderID uuid.UUID, from *domain.OrderStatus, to domain.OrderStatus, actor domain.Actor, data map[string]interface{}) error {
	var raw datatypes.JSON
	if len(data) > 0 {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = datatypes.JSON(b)
	}
	return tx.Create(&domain.OrderEvent{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.IDPtr(),
		EventData:  raw,
	}).Error
}

// publish emits an order event after commit. Failures are logged only.
func (s *Service) publish(ctx context.Context, eventType string, o *domain.Order, from domain.OrderStatus, actor domain.Actor) {
	if s.Events == nil {
		return
	}
	payload := events.OrderStatusPayload{
		OrderID:           o.ID.String(),
		BuyerID:           o.BuyerID.String(),
		FromStatus:        string(from),
		ToStatus:          string(o.Status),
		Total:             o.Total.StringFixed(2),
		PaymentAmount:     o.PaymentAmount.StringFixed(2),
		PaymentPercentage: o.PaymentPercentage,
		Currency:          o.Currency,
	}
	if actor.UserID != uuid.Nil {
		payload.ActorID = actor.UserID.String()
	}
	env, err := events.NewEnvelope(eventType, producerName, trace.ID(ctx), o.ID.String(), payload, s.now())
	if err != nil {
		log.Error().Err(err).Str("order_id", o.ID.String()).Msg("failed to build order event")
		return
	}
	if err := s.Events.Publish(ctx, env); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID.String()).Str("event_type", eventType).Msg("order event not published")
	}
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
