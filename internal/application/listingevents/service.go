package listingevents

import (
	"context"
	"errors"
	"fmt"

	"caskmarket-backend/internal/application/policies"
	"caskmarket-backend/internal/constants"
	"caskmarket-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB    *gorm.DB
	Authz policies.Authorizer
}

// GetListingEvents returns a listing's history to its seller or an admin.
func (s *Service) GetListingEvents(ctx context.Context, actor domain.Actor, listingID uuid.UUID) ([]domain.ListingEvent, error) {
	if listingID == uuid.Nil {
		return nil, fmt.Errorf("%w: listing id is required", domain.ErrValidation)
	}

	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", listingID).Select("id", "seller_id").First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: listing %s", domain.ErrNotFound, listingID)
		}
		return nil, err
	}
	authz := s.Authz
	if authz == nil {
		authz = policies.RoleAuthorizer{}
	}
	if err := authz.Authorize(actor, constants.EditListing, &policies.Resource{SellerIDs: []uuid.UUID{listing.SellerID}}); err != nil {
		return nil, err
	}

	var events []domain.ListingEvent
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
