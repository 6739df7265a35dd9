package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"caskmarket-backend/internal/application/policies"
	"caskmarket-backend/internal/constants"
	"caskmarket-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultWindow is how long a new reservation stays actionable.
const DefaultWindow = 72 * time.Hour

type Service struct {
	DB     *gorm.DB
	Authz  policies.Authorizer
	Now    func() time.Time
	Window time.Duration
}

// View is a reservation with its expiry state computed at read time.
type View struct {
	domain.Reservation
	EffectiveExpiry time.Time `json:"effective_expiry"`
	IsExpired       bool      `json:"is_expired"`
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

func (s *Service) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return DefaultWindow
}

func (s *Service) view(r domain.Reservation) View {
	return View{
		Reservation:     r,
		EffectiveExpiry: r.EffectiveExpiry(),
		IsExpired:       r.ExpiredAt(s.now()),
	}
}

func resourceOf(r *domain.Reservation) *policies.Resource {
	return &policies.Resource{BuyerID: r.BuyerID, SellerIDs: []uuid.UUID{r.SellerID}}
}

func (s *Service) load(tx *gorm.DB, id uuid.UUID) (*domain.Reservation, error) {
	var r domain.Reservation
	if err := tx.Where("id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: reservation %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &r, nil
}

type CreateInput struct {
	ListingID uuid.UUID
	Quantity  int
}

// Create records a buyer's claim on a listing. Price and currency are
// snapshotted from the listing; stock is not touched.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*View, error) {
	if err := s.authz().Authorize(actor, constants.CreateReservation, nil); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", in.ListingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: listing %s", domain.ErrNotFound, in.ListingID)
		}
		return nil, err
	}
	if listing.SellerID == actor.UserID {
		return nil, fmt.Errorf("%w: cannot reserve your own listing", domain.ErrValidation)
	}
	if !listing.Tradable() {
		return nil, fmt.Errorf("%w: listing %s", domain.ErrListingNotTradable, listing.ID)
	}
	if in.Quantity < listing.MinQuantity {
		return nil, fmt.Errorf("%w: minimum is %d", domain.ErrBelowMinimum, listing.MinQuantity)
	}
	if in.Quantity > listing.QuantityAvailable {
		return nil, fmt.Errorf("%w: %d available", domain.ErrInsufficientStock, listing.QuantityAvailable)
	}

	r := domain.Reservation{
		ListingID: listing.ID,
		BuyerID:   actor.UserID,
		SellerID:  listing.SellerID,
		Quantity:  in.Quantity,
		UnitPrice: listing.UnitPrice,
		Currency:  listing.Currency,
		Status:    domain.ReservationPending,
		ExpiresAt: s.now().Add(s.window()),
	}
	if err := s.DB.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}
	log.Info().
		Str("reservation_id", r.ID.String()).
		Str("listing_id", r.ListingID.String()).
		Int("quantity", r.Quantity).
		Msg("reservation created")
	v := s.view(r)
	return &v, nil
}

// Confirm moves a pending, unexpired reservation to confirmed.
func (s *Service) Confirm(ctx context.Context, actor domain.Actor, id uuid.UUID) (*View, error) {
	r, err := s.load(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := s.authz().Authorize(actor, constants.ConfirmReservation, resourceOf(r)); err != nil {
		return nil, err
	}
	if r.Status != domain.ReservationPending {
		return nil, fmt.Errorf("%w: reservation is %s", domain.ErrInvalidTransition, r.Status)
	}
	now := s.now()
	if r.ExpiredAt(now) {
		return nil, fmt.Errorf("%w: effective expiry was %s", domain.ErrExpired, r.EffectiveExpiry().Format(time.RFC3339))
	}

	res := s.DB.WithContext(ctx).Model(&domain.Reservation{}).
		Where("id = ? AND status = ?", id, domain.ReservationPending).
		Updates(map[string]interface{}{
			"status":       domain.ReservationConfirmed,
			"confirmed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: reservation changed concurrently", domain.ErrInvalidTransition)
	}
	r.Status = domain.ReservationConfirmed
	r.ConfirmedAt = &now
	log.Info().Str("reservation_id", id.String()).Str("actor_id", actor.UserID.String()).Msg("reservation confirmed")
	v := s.view(*r)
	return &v, nil
}

type BulkFailure struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

type BulkResult struct {
	Confirmed []View        `json:"confirmed"`
	Failed    []BulkFailure `json:"failed"`
}

// BulkConfirm confirms each actionable reservation. Expired or otherwise
// non-actionable ids are reported without failing the batch. Authorization
// failures abort the whole call.
func (s *Service) BulkConfirm(ctx context.Context, actor domain.Actor, ids []uuid.UUID) (*BulkResult, error) {
	if err := s.authz().Authorize(actor, constants.ConfirmReservation, nil); err != nil {
		return nil, err
	}
	out := &BulkResult{Confirmed: []View{}, Failed: []BulkFailure{}}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		v, err := s.Confirm(ctx, actor, id)
		switch {
		case err == nil:
			out.Confirmed = append(out.Confirmed, *v)
		case errors.Is(err, domain.ErrExpired), errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
			out.Failed = append(out.Failed, BulkFailure{ID: id, Reason: err.Error()})
		default:
			return nil, err
		}
	}
	return out, nil
}

// Extend pushes a pending reservation's effective expiry forward. Expired
// pending reservations may be extended back into an actionable state.
func (s *Service) Extend(ctx context.Context, actor domain.Actor, id uuid.UUID, newExpiry time.Time, reason string) (*View, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}
	r, err := s.load(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := s.authz().Authorize(actor, constants.ExtendReservation, resourceOf(r)); err != nil {
		return nil, err
	}
	if r.Status != domain.ReservationPending {
		return nil, fmt.Errorf("%w: reservation is %s", domain.ErrInvalidTransition, r.Status)
	}
	current := r.EffectiveExpiry()
	if !newExpiry.After(current) {
		return nil, fmt.Errorf("%w: new expiry must be after %s", domain.ErrValidation, current.Format(time.RFC3339))
	}

	res := s.DB.WithContext(ctx).Model(&domain.Reservation{}).
		Where("id = ? AND status = ?", id, domain.ReservationPending).
		Updates(map[string]interface{}{
			"extended_until":   newExpiry,
			"extension_reason": reason,
			"updated_at":       s.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: reservation changed concurrently", domain.ErrInvalidTransition)
	}
	r.ExtendedUntil = &newExpiry
	r.ExtensionReason = &reason
	log.Info().
		Str("reservation_id", id.String()).
		Time("extended_until", newExpiry).
		Str("reason", reason).
		Msg("reservation extended")
	v := s.view(*r)
	return &v, nil
}

// Cancel moves a pending or confirmed reservation to cancelled. Cancelling a
// cancelled reservation is a no-op. A confirmed reservation whose order is
// still live cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID) (*View, error) {
	var out *View
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if err := s.authz().Authorize(actor, constants.CancelReservation, resourceOf(r)); err != nil {
			return err
		}
		if r.Status == domain.ReservationCancelled {
			v := s.view(*r)
			out = &v
			return nil
		}
		now := s.now()
		res := tx.Model(&domain.Reservation{}).
			Where("id = ? AND status = ?", id, r.Status).
			Updates(map[string]interface{}{
				"status":       domain.ReservationCancelled,
				"cancelled_at": now,
				"cancelled_by": actor.IDPtr(),
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost a race; a concurrent cancel still leaves us cancelled.
			cur, err := s.load(tx, id)
			if err != nil {
				return err
			}
			if cur.Status != domain.ReservationCancelled {
				return fmt.Errorf("%w: reservation changed concurrently", domain.ErrInvalidTransition)
			}
			v := s.view(*cur)
			out = &v
			return nil
		}
		// The guarded update above holds the row, and order creation touches the
		// same row, so the order check sees any order committed before us.
		if r.Status == domain.ReservationConfirmed {
			var live int64
			if err := tx.Model(&domain.Order{}).
				Where("reservation_id = ? AND status <> ?", id, domain.OrderRefunded).
				Count(&live).Error; err != nil {
				return err
			}
			if live > 0 {
				return fmt.Errorf("%w: reservation already has an order", domain.ErrInvalidTransition)
			}
		}
		r.Status = domain.ReservationCancelled
		r.CancelledAt = &now
		r.CancelledBy = actor.IDPtr()
		v := s.view(*r)
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("reservation_id", id.String()).Str("actor_id", actor.UserID.String()).Msg("reservation cancelled")
	return out, nil
}

// Get returns one reservation visible to the actor.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*View, error) {
	r, err := s.load(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := s.authz().Authorize(actor, constants.ViewReservation, resourceOf(r)); err != nil {
		return nil, err
	}
	v := s.view(*r)
	return &v, nil
}

// ListFilter narrows a reservation list. Expired pending reservations are
// listed, flagged is_expired, unless ExcludeExpired is set.
type ListFilter struct {
	Status         domain.ReservationStatus
	ExcludeExpired bool
}

// ListForBuyer returns the actor's own reservations.
func (s *Service) ListForBuyer(ctx context.Context, actor domain.Actor, f ListFilter) ([]View, error) {
	if err := s.authz().Authorize(actor, constants.ViewReservation, nil); err != nil {
		return nil, err
	}
	return s.list(ctx, s.DB.WithContext(ctx).Where("buyer_id = ?", actor.UserID), f)
}

// ListForSeller returns reservations made on the actor's listings.
func (s *Service) ListForSeller(ctx context.Context, actor domain.Actor, f ListFilter) ([]View, error) {
	if err := s.authz().Authorize(actor, constants.ViewReservation, nil); err != nil {
		return nil, err
	}
	return s.list(ctx, s.DB.WithContext(ctx).Where("seller_id = ?", actor.UserID), f)
}

// ListAll is the admin moderation queue.
func (s *Service) ListAll(ctx context.Context, actor domain.Actor, f ListFilter) ([]View, error) {
	if err := s.authz().Authorize(actor, constants.ListAllReservations, nil); err != nil {
		return nil, err
	}
	return s.list(ctx, s.DB.WithContext(ctx), f)
}

func (s *Service) list(ctx context.Context, q *gorm.DB, f ListFilter) ([]View, error) {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var rows []domain.Reservation
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reservations: %w", err)
	}
	out := make([]View, 0, len(rows))
	for _, r := range rows {
		v := s.view(r)
		if v.IsExpired && f.ExcludeExpired {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
