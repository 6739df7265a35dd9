package listingevents

import (
	"context"
	"testing"

	lesvc "caskmarket-backend/internal/application/listingevents"
	listsvc "caskmarket-backend/internal/application/listings"
	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/pkg/constants"
	"caskmarket-backend/internal/pkg/testapp"
	"caskmarket-backend/internal/pkg/testdb"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetListingEvents(t *testing.T) {
	db := testdb.New(t)
	seller := domain.Actor{UserID: uuid.New(), Role: constants.Seller}
	admin := domain.Actor{UserID: uuid.New(), Role: constants.Admin}
	buyer := domain.Actor{UserID: uuid.New(), Role: constants.Buyer}

	listings := &listsvc.Service{DB: db}
	listing, err := listings.CreateListing(context.Background(), seller, listsvc.CreateListingInput{
		Title: "Old Tom", Category: "gin", Packaging: domain.PackagingBottle,
		QuantityAvailable: 5, MinQuantity: 1, UnitPrice: decimal.NewFromInt(20),
		Currency: "EUR", InventoryType: domain.InventoryThroughBrand,
	})
	require.NoError(t, err)
	_, err = listings.ApproveListing(context.Background(), admin, listing.ID)
	require.NoError(t, err)

	h := &Handlers{Service: &lesvc.Service{DB: db}}
	app := testapp.New()
	app.Get("/listings/:id/events", h.GetListingEvents)
	path := "/listings/" + listing.ID.String() + "/events"

	res := testapp.Do(t, app, "GET", path, nil, seller)
	require.Equal(t, 200, res.Code)
	require.Len(t, res.List(), 2)
	assert.Equal(t, domain.ListingEventCreated, res.List()[0].(map[string]interface{})["event_type"])
	assert.Equal(t, domain.ListingEventApproved, res.List()[1].(map[string]interface{})["event_type"])

	assert.Equal(t, 200, testapp.Do(t, app, "GET", path, nil, admin).Code)
	assert.Equal(t, 403, testapp.Do(t, app, "GET", path, nil, buyer).Code)
	assert.Equal(t, 401, testapp.Do(t, app, "GET", path, nil, domain.Actor{}).Code)
	assert.Equal(t, 404, testapp.Do(t, app, "GET", "/listings/"+uuid.NewString()+"/events", nil, admin).Code)
}
