package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"caskmarket-backend/internal/application/policies"
	"caskmarket-backend/internal/constants"
	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/infrastructure/events"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CreateFromReservation opens a payment_pending order for a confirmed
// reservation at its snapshotted price. A reservation yields at most one
// order; repeating the call returns it.
func (s *Service) CreateFromReservation(ctx context.Context, actor domain.Actor, reservationID uuid.UUID) (*domain.Order, error) {
	db := s.DB.WithContext(ctx)
	var r domain.Reservation
	if err := db.Where("id = ?", reservationID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: reservation %s", domain.ErrNotFound, reservationID)
		}
		return nil, err
	}
	if err := s.authz().Authorize(actor, constants.CreateOrder, &policies.Resource{BuyerID: r.BuyerID, SellerIDs: []uuid.UUID{r.SellerID}}); err != nil {
		return nil, err
	}
	if existing, err := s.byReservation(db, reservationID); err != nil || existing != nil {
		return existing, err
	}
	if r.Status != domain.ReservationConfirmed {
		return nil, fmt.Errorf("%w: reservation is %s", domain.ErrInvalidTransition, r.Status)
	}

	var listing domain.Listing
	if err := db.Where("id = ?", r.ListingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: listing %s", domain.ErrNotFound, r.ListingID)
		}
		return nil, err
	}

	sched := s.feeSchedule(ctx)
	item := domain.OrderItem{
		ListingID:     listing.ID,
		SellerID:      listing.SellerID,
		Category:      listing.Category,
		Subcategory:   listing.Subcategory,
		InventoryType: listing.InventoryType,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		FeePerUnit:    sched.Fee(listing.Category, listing.SubcategoryValue()),
	}
	rid := r.ID
	o := &domain.Order{
		ReservationID:     &rid,
		BuyerID:           r.BuyerID,
		Currency:          r.Currency,
		InventoryType:     listing.InventoryType,
		Status:            domain.OrderPaymentPending,
		PaymentPercentage: PaymentPercentage(listing.InventoryType),
		Items:             []domain.OrderItem{item},
	}
	ComputeTotals(o.Items, o.PaymentPercentage).apply(o)

	err := s.insert(ctx, o, actor, map[string]interface{}{"reservation_id": rid}, func(tx *gorm.DB) error {
		return s.holdConfirmed(tx, rid)
	})
	if err != nil {
		// Lost a race against a concurrent create for the same reservation.
		if existing, lookupErr := s.byReservation(db, reservationID); lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return o, nil
}

// holdConfirmed re-checks inside the order's transaction that the reservation
// is still confirmed, touching the row so a concurrent cancel serializes with us.
func (s *Service) holdConfirmed(tx *gorm.DB, reservationID uuid.UUID) error {
	res := tx.Model(&domain.Reservation{}).
		Where("id = ? AND status = ?", reservationID, domain.ReservationConfirmed).
		Update("updated_at", s.now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: reservation is no longer confirmed", domain.ErrInvalidTransition)
	}
	return nil
}

type CartItem struct {
	ListingID uuid.UUID
	Quantity  int
}

type CheckoutInput struct {
	Items      []CartItem
	ExternalID *string
}

// Checkout creates an order straight from a cart, priced from the catalog.
// Every line is validated before anything is written; carts spanning more than
// one inventory type or currency are rejected. A repeated ExternalID returns
// the order it first created.
func (s *Service) Checkout(ctx context.Context, actor domain.Actor, in CheckoutInput) (*domain.Order, error) {
	if err := s.authz().Authorize(actor, constants.CreateOrder, nil); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	externalID := nonEmpty(in.ExternalID)
	if externalID != nil {
		existing, err := s.byExternalID(db, *externalID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.BuyerID != actor.UserID {
				return nil, fmt.Errorf("%w: idempotency key already used", domain.ErrValidation)
			}
			return existing, nil
		}
	}

	cart, err := mergeCart(in.Items)
	if err != nil {
		return nil, err
	}

	sched := s.feeSchedule(ctx)
	items := make([]domain.OrderItem, 0, len(cart))
	currencies := map[string]bool{}
	types := map[domain.InventoryType]bool{}
	typeList := make([]domain.InventoryType, 0, len(cart))
	for _, ci := range cart {
		var l domain.Listing
		if err := db.Where("id = ?", ci.ListingID).First(&l).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: listing %s", domain.ErrNotFound, ci.ListingID)
			}
			return nil, err
		}
		if l.SellerID == actor.UserID {
			return nil, fmt.Errorf("%w: cannot buy your own listing %s", domain.ErrValidation, l.ID)
		}
		if !l.Tradable() {
			return nil, fmt.Errorf("%w: listing %s", domain.ErrListingNotTradable, l.ID)
		}
		if ci.Quantity < l.MinQuantity {
			return nil, fmt.Errorf("%w: listing %s minimum is %d", domain.ErrBelowMinimum, l.ID, l.MinQuantity)
		}
		if ci.Quantity > l.QuantityAvailable {
			return nil, fmt.Errorf("%w: listing %s has %d available", domain.ErrInsufficientStock, l.ID, l.QuantityAvailable)
		}
		currencies[strings.ToUpper(l.Currency)] = true
		types[l.InventoryType] = true
		typeList = append(typeList, l.InventoryType)
		items = append(items, domain.OrderItem{
			ListingID:     l.ID,
			SellerID:      l.SellerID,
			Category:      l.Category,
			Subcategory:   l.Subcategory,
			InventoryType: l.InventoryType,
			Quantity:      ci.Quantity,
			UnitPrice:     l.UnitPrice,
			FeePerUnit:    sched.Fee(l.Category, l.SubcategoryValue()),
		})
	}
	if len(types) > 1 {
		return nil, domain.ErrMixedInventoryType
	}
	if len(currencies) > 1 {
		return nil, domain.ErrMixedCurrency
	}
	var currency string
	for c := range currencies {
		currency = c
	}

	o := &domain.Order{
		ExternalID:        externalID,
		BuyerID:           actor.UserID,
		Currency:          currency,
		InventoryType:     typeList[0],
		Status:            domain.OrderPaymentPending,
		PaymentPercentage: PaymentPercentage(typeList...),
		Items:             items,
	}
	ComputeTotals(o.Items, o.PaymentPercentage).apply(o)

	if err := s.insert(ctx, o, actor, map[string]interface{}{"source": "checkout"}, nil); err != nil {
		if externalID != nil {
			if existing, lookupErr := s.byExternalID(db, *externalID); lookupErr == nil && existing != nil && existing.BuyerID == actor.UserID {
				return existing, nil
			}
		}
		return nil, err
	}
	return o, nil
}

func mergeCart(items []CartItem) ([]CartItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}
	idx := make(map[uuid.UUID]int, len(items))
	out := make([]CartItem, 0, len(items))
	for _, it := range items {
		if it.ListingID == uuid.Nil {
			return nil, fmt.Errorf("%w: listing_id is required", domain.ErrValidation)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
		}
		if i, ok := idx[it.ListingID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[it.ListingID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

// insert writes the order, its items and the initial history row together.
// guard, when set, runs first in the same transaction and aborts it on error.
func (s *Service) insert(ctx context.Context, o *domain.Order, actor domain.Actor, data map[string]interface{}, guard func(tx *gorm.DB) error) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if guard != nil {
			if err := guard(tx); err != nil {
				return err
			}
		}
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		return recordEvent(tx, o.ID, nil, o.Status, actor, data)
	})
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	log.Info().
		Str("order_id", o.ID.String()).
		Str("buyer_id", o.BuyerID.String()).
		Int("payment_percentage", o.PaymentPercentage).
		Str("total", o.Total.StringFixed(2)).
		Msg("order created")
	s.publish(ctx, events.EventOrderCreated, o, "", actor)
	return nil
}

func (s *Service) byReservation(db *gorm.DB, reservationID uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	err := db.Preload("Items").Where("reservation_id = ?", reservationID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Service) byExternalID(db *gorm.DB, externalID string) (*domain.Order, error) {
	var o domain.Order
	err := db.Preload("Items").Where("external_id = ?", externalID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
