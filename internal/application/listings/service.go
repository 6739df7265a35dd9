package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"caskmarket-backend/internal/application/policies"
	"caskmarket-backend/internal/constants"
	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB    *gorm.DB
	Authz policies.Authorizer
}

func (s *Service) authz() policies.Authorizer {
	if s.Authz != nil {
		return s.Authz
	}
	return policies.RoleAuthorizer{}
}

type CreateListingInput struct {
	Title             string
	Category          string
	Subcategory       *string
	Packaging         domain.Packaging
	QuantityAvailable int
	MinQuantity       int
	UnitPrice         decimal.Decimal
	Currency          string
	InventoryType     domain.InventoryType
}

func (in CreateListingInput) validate() error {
	switch {
	case !validation.IsValidTitle(in.Title):
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	case !validation.IsValidCategory(in.Category):
		return fmt.Errorf("%w: invalid category", domain.ErrValidation)
	case in.Subcategory != nil && strings.TrimSpace(*in.Subcategory) != "" && !validation.IsValidCategory(*in.Subcategory):
		return fmt.Errorf("%w: invalid subcategory", domain.ErrValidation)
	case !in.Packaging.Valid():
		return fmt.Errorf("%w: packaging must be bottle or case", domain.ErrValidation)
	case !in.InventoryType.Valid():
		return fmt.Errorf("%w: invalid inventory_type", domain.ErrValidation)
	case in.QuantityAvailable < 0:
		return fmt.Errorf("%w: quantity_available must not be negative", domain.ErrValidation)
	case in.MinQuantity < 1:
		return fmt.Errorf("%w: min_quantity must be at least 1", domain.ErrValidation)
	case !in.UnitPrice.IsPositive():
		return fmt.Errorf("%w: unit_price must be positive", domain.ErrValidation)
	case !validation.IsValidCurrency(validation.NormalizeCurrency(in.Currency)):
		return fmt.Errorf("%w: currency must be an ISO 4217 code", domain.ErrValidation)
	}
	return nil
}

// CreateListing stores a draft listing awaiting moderation.
func (s *Service) CreateListing(ctx context.Context, actor domain.Actor, in CreateListingInput) (*domain.Listing, error) {
	if err := s.authz().Authorize(actor, constants.CreateListing, nil); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	var sub *string
	if in.Subcategory != nil && strings.TrimSpace(*in.Subcategory) != "" {
		v := strings.TrimSpace(*in.Subcategory)
		sub = &v
	}
	listing := &domain.Listing{
		SellerID:          actor.UserID,
		Title:             strings.TrimSpace(in.Title),
		Category:          strings.TrimSpace(in.Category),
		Subcategory:       sub,
		Packaging:         in.Packaging,
		QuantityAvailable: in.QuantityAvailable,
		MinQuantity:       in.MinQuantity,
		UnitPrice:         in.UnitPrice.Round(2),
		Currency:          validation.NormalizeCurrency(in.Currency),
		InventoryType:     in.InventoryType,
		Status:            domain.ModerationPending,
		Visibility:        domain.VisibilityDraft,
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Create(listing).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	if err := createEvent(tx, listing.ID, domain.ListingEventCreated, actor, map[string]interface{}{
		"unit_price":         listing.UnitPrice.StringFixed(2),
		"quantity_available": listing.QuantityAvailable,
		"inventory_type":     listing.InventoryType,
	}); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create listing event: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	log.Info().Str("listing_id", listing.ID.String()).Str("seller_id", actor.UserID.String()).Msg("listing created")
	return listing, nil
}

func (s *Service) load(db *gorm.DB, id uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := db.Where("id = ?", id).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: listing %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &listing, nil
}

// GetListingByID returns a tradable listing to anyone, and any listing to its
// seller or an admin.
func (s *Service) GetListingByID(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Listing, error) {
	listing, err := s.load(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if listing.Tradable() {
		if err := s.authz().Authorize(actor, constants.ViewListing, nil); err != nil {
			return nil, err
		}
		return listing, nil
	}
	if err := s.authz().Authorize(actor, constants.EditListing, sellerResource(listing)); err != nil {
		return nil, fmt.Errorf("%w: listing %s", domain.ErrNotFound, id)
	}
	return listing, nil
}

// GetLiveListings returns every approved, live listing with stock.
func (s *Service) GetLiveListings(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND visibility = ? AND quantity_available > 0", domain.ModerationApproved, domain.VisibilityLive).
		Order("created_at DESC").
		Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}
	return listings, nil
}

func (s *Service) GetSellerListings(ctx context.Context, actor domain.Actor) ([]domain.Listing, error) {
	if err := s.authz().Authorize(actor, constants.EditListing, nil); err != nil {
		return nil, err
	}
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).Where("seller_id = ?", actor.UserID).Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}
	return listings, nil
}

// GetListingsByStatus is the admin moderation queue.
func (s *Service) GetListingsByStatus(ctx context.Context, actor domain.Actor, status domain.ModerationStatus) ([]domain.Listing, error) {
	if err := s.authz().Authorize(actor, constants.ModerateListing, nil); err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var listings []domain.Listing
	if err := q.Order("created_at ASC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}
	return listings, nil
}

// SetVisibility lets the seller move a listing between draft, idle and live.
func (s *Service) SetVisibility(ctx context.Context, actor domain.Actor, id uuid.UUID, v domain.Visibility) (*domain.Listing, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: visibility must be draft, idle or live", domain.ErrValidation)
	}
	return s.update(ctx, actor, id, constants.EditListing, domain.ListingEventVisibilityChanged, func(l *domain.Listing) (map[string]interface{}, map[string]interface{}, error) {
		if l.Visibility == v {
			return nil, nil, nil
		}
		return map[string]interface{}{"visibility": v},
			map[string]interface{}{"from": l.Visibility, "to": v}, nil
	})
}

// ApproveListing clears a listing for trading once its seller makes it live.
func (s *Service) ApproveListing(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Listing, error) {
	return s.update(ctx, actor, id, constants.ModerateListing, domain.ListingEventApproved, func(l *domain.Listing) (map[string]interface{}, map[string]interface{}, error) {
		if l.Status == domain.ModerationApproved {
			return nil, nil, nil
		}
		return map[string]interface{}{"status": domain.ModerationApproved, "rejection_reason": nil},
			map[string]interface{}{"from": l.Status}, nil
	})
}

// RejectListing blocks a listing from trading with a reason shown to the seller.
func (s *Service) RejectListing(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (*domain.Listing, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}
	return s.update(ctx, actor, id, constants.ModerateListing, domain.ListingEventRejected, func(l *domain.Listing) (map[string]interface{}, map[string]interface{}, error) {
		return map[string]interface{}{"status": domain.ModerationRejected, "rejection_reason": reason},
			map[string]interface{}{"from": l.Status, "reason": reason}, nil
	})
}

type mutation func(l *domain.Listing) (updates, eventData map[string]interface{}, err error)

// update applies a listing change and its history row in one transaction. A
// mutation returning no updates is a no-op.
func (s *Service) update(ctx context.Context, actor domain.Actor, id uuid.UUID, permission, eventType string, m mutation) (*domain.Listing, error) {
	var out *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if err := s.authz().Authorize(actor, permission, sellerResource(listing)); err != nil {
			return err
		}
		updates, data, err := m(listing)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			out = listing
			return nil
		}
		if err := tx.Model(listing).Updates(updates).Error; err != nil {
			return err
		}
		if err := createEvent(tx, listing.ID, eventType, actor, data); err != nil {
			return err
		}
		out, err = s.load(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("listing_id", id.String()).Str("event", eventType).Str("actor_id", actor.UserID.String()).Msg("listing updated")
	return out, nil
}

func sellerResource(l *domain.Listing) *policies.Resource {
	return &policies.Resource{SellerIDs: []uuid.UUID{l.SellerID}}
}

func createEvent(tx *gorm.DB, listingID uuid.UUID, eventType string, actor domain.Actor, data map[string]interface{}) error {
	eventDataBytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return tx.Create(&domain.ListingEvent{
		ListingID:   listingID,
		EventType:   eventType,
		ActorUserID: actor.IDPtr(),
		EventData:   datatypes.JSON(eventDataBytes),
	}).Error
}
