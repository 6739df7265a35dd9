package reservations

import (
	"testing"
	"time"

	ressvc "caskmarket-backend/internal/application/reservations"
	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/pkg/constants"
	"caskmarket-backend/internal/pkg/testapp"
	"caskmarket-backend/internal/pkg/testdb"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	app     *fiber.App
	db      *gorm.DB
	now     time.Time
	listing domain.Listing
	buyer   domain.Actor
	seller  domain.Actor
	admin   domain.Actor
}

func setupReservationsTest(t *testing.T) *fixture {
	f := &fixture{
		db:     testdb.New(t),
		now:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		buyer:  domain.Actor{UserID: uuid.New(), Role: constants.Buyer},
		seller: domain.Actor{UserID: uuid.New(), Role: constants.Seller},
		admin:  domain.Actor{UserID: uuid.New(), Role: constants.Admin},
	}
	f.listing = domain.Listing{
		SellerID: f.seller.UserID, Title: "Cask 42", Category: "whisky",
		Packaging: domain.PackagingCase, QuantityAvailable: 10, MinQuantity: 2,
		UnitPrice: decimal.RequireFromString("120.00"), Currency: "GBP",
		InventoryType: domain.InventoryBondedWarehouse,
		Status:        domain.ModerationApproved, Visibility: domain.VisibilityLive,
	}
	require.NoError(t, f.db.Create(&f.listing).Error)

	h := &Handlers{Service: &ressvc.Service{DB: f.db, Now: func() time.Time { return f.now }}}
	f.app = testapp.New()
	f.app.Post("/reservations", h.CreateReservation)
	f.app.Get("/reservations", h.ListReservations)
	f.app.Get("/reservations/:id", h.GetReservation)
	f.app.Post("/reservations/:id/cancel", h.CancelReservation)
	f.app.Get("/admin/reservations", h.ListAllReservations)
	f.app.Post("/admin/reservations/bulk-confirm", h.BulkConfirm)
	f.app.Post("/admin/reservations/:id/confirm", h.ConfirmReservation)
	f.app.Post("/admin/reservations/:id/extend", h.ExtendReservation)
	return f
}

func (f *fixture) reserve(t *testing.T, qty int) string {
	t.Helper()
	res := testapp.Do(t, f.app, "POST", "/reservations", map[string]interface{}{
		"listing_id": f.listing.ID.String(), "quantity": qty,
	}, f.buyer)
	require.Equal(t, 201, res.Code, res.Body)
	return res.Data()["id"].(string)
}

func TestCreateReservation(t *testing.T) {
	f := setupReservationsTest(t)

	res := testapp.Do(t, f.app, "POST", "/reservations", map[string]interface{}{
		"listing_id": f.listing.ID.String(), "quantity": 3,
	}, f.buyer)
	require.Equal(t, 201, res.Code)
	data := res.Data()
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, false, data["is_expired"])
	assert.Equal(t, f.seller.UserID.String(), data["seller_id"])

	cases := map[string]struct {
		body  map[string]interface{}
		actor domain.Actor
		code  int
	}{
		"below minimum":   {map[string]interface{}{"listing_id": f.listing.ID.String(), "quantity": 1}, f.buyer, 400},
		"over stock":      {map[string]interface{}{"listing_id": f.listing.ID.String(), "quantity": 11}, f.buyer, 409},
		"zero quantity":   {map[string]interface{}{"listing_id": f.listing.ID.String(), "quantity": 0}, f.buyer, 400},
		"bad listing id":  {map[string]interface{}{"listing_id": "x", "quantity": 2}, f.buyer, 400},
		"unknown listing": {map[string]interface{}{"listing_id": uuid.NewString(), "quantity": 2}, f.buyer, 404},
		"seller role":     {map[string]interface{}{"listing_id": f.listing.ID.String(), "quantity": 2}, f.seller, 403},
		"anonymous":       {map[string]interface{}{"listing_id": f.listing.ID.String(), "quantity": 2}, domain.Actor{}, 401},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.code, testapp.Do(t, f.app, "POST", "/reservations", tc.body, tc.actor).Code)
		})
	}
}

func TestConfirmAfterExpiryNeedsExtension(t *testing.T) {
	f := setupReservationsTest(t)
	id := f.reserve(t, 2)

	f.now = f.now.Add(ressvc.DefaultWindow + time.Minute)
	get := testapp.Do(t, f.app, "GET", "/reservations/"+id, nil, f.buyer)
	require.Equal(t, 200, get.Code)
	assert.Equal(t, true, get.Data()["is_expired"])

	assert.Equal(t, 403, testapp.Do(t, f.app, "POST", "/admin/reservations/"+id+"/confirm", nil, f.buyer).Code)
	expired := testapp.Do(t, f.app, "POST", "/admin/reservations/"+id+"/confirm", nil, f.admin)
	assert.Equal(t, 410, expired.Code)

	until := f.now.Add(24 * time.Hour).Format(time.RFC3339)
	assert.Equal(t, 400, testapp.Do(t, f.app, "POST", "/admin/reservations/"+id+"/extend",
		map[string]string{"extended_until": until}, f.admin).Code)
	extended := testapp.Do(t, f.app, "POST", "/admin/reservations/"+id+"/extend",
		map[string]string{"extended_until": until, "reason": "buyer awaiting duty paperwork"}, f.admin)
	require.Equal(t, 200, extended.Code)
	assert.Equal(t, false, extended.Data()["is_expired"])

	confirmed := testapp.Do(t, f.app, "POST", "/admin/reservations/"+id+"/confirm", nil, f.admin)
	require.Equal(t, 200, confirmed.Code)
	assert.Equal(t, "confirmed", confirmed.Data()["status"])

	again := testapp.Do(t, f.app, "POST", "/admin/reservations/"+id+"/confirm", nil, f.admin)
	assert.Equal(t, 409, again.Code)
}

func TestBulkConfirm(t *testing.T) {
	f := setupReservationsTest(t)
	stale := f.reserve(t, 2)
	f.now = f.now.Add(ressvc.DefaultWindow + time.Hour)
	fresh := f.reserve(t, 2)
	unknown := uuid.NewString()

	res := testapp.Do(t, f.app, "POST", "/admin/reservations/bulk-confirm",
		map[string]interface{}{"ids": []string{stale, fresh, unknown, fresh}}, f.admin)
	require.Equal(t, 200, res.Code)
	meta := res.Body["metadata"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["confirmed"])
	assert.EqualValues(t, 2, meta["failed"])

	assert.Equal(t, 400, testapp.Do(t, f.app, "POST", "/admin/reservations/bulk-confirm",
		map[string]interface{}{"ids": []string{}}, f.admin).Code)
	assert.Equal(t, 400, testapp.Do(t, f.app, "POST", "/admin/reservations/bulk-confirm",
		map[string]interface{}{"ids": []string{"nope"}}, f.admin).Code)
	assert.Equal(t, 403, testapp.Do(t, f.app, "POST", "/admin/reservations/bulk-confirm",
		map[string]interface{}{"ids": []string{fresh}}, f.seller).Code)
}

func TestListReservations_ScopedByRole(t *testing.T) {
	f := setupReservationsTest(t)
	f.reserve(t, 2)
	f.now = f.now.Add(ressvc.DefaultWindow + time.Hour)
	f.reserve(t, 3)

	mine := testapp.Do(t, f.app, "GET", "/reservations", nil, f.buyer).List()
	require.Len(t, mine, 2, "expired reservations are listed unless filtered out")
	expired := 0
	for _, v := range mine {
		if v.(map[string]interface{})["is_expired"] == true {
			expired++
		}
	}
	assert.Equal(t, 1, expired)
	assert.Len(t, testapp.Do(t, f.app, "GET", "/reservations?exclude_expired=true", nil, f.buyer).List(), 1)
	assert.Len(t, testapp.Do(t, f.app, "GET", "/reservations", nil, f.seller).List(), 2)
	assert.Len(t, testapp.Do(t, f.app, "GET", "/reservations?exclude_expired=true", nil, f.seller).List(), 1)

	stranger := domain.Actor{UserID: uuid.New(), Role: constants.Buyer}
	assert.Len(t, testapp.Do(t, f.app, "GET", "/reservations", nil, stranger).List(), 0)

	assert.Len(t, testapp.Do(t, f.app, "GET", "/admin/reservations", nil, f.admin).List(), 2)
	assert.Len(t, testapp.Do(t, f.app, "GET", "/admin/reservations?exclude_expired=1", nil, f.admin).List(), 1)
	assert.Equal(t, 403, testapp.Do(t, f.app, "GET", "/admin/reservations", nil, f.buyer).Code)
}

func TestCancelReservation(t *testing.T) {
	f := setupReservationsTest(t)
	id := f.reserve(t, 2)

	stranger := domain.Actor{UserID: uuid.New(), Role: constants.Buyer}
	assert.Equal(t, 403, testapp.Do(t, f.app, "POST", "/reservations/"+id+"/cancel", nil, stranger).Code)

	res := testapp.Do(t, f.app, "POST", "/reservations/"+id+"/cancel", nil, f.buyer)
	require.Equal(t, 200, res.Code)
	assert.Equal(t, "cancelled", res.Data()["status"])

	again := testapp.Do(t, f.app, "POST", "/reservations/"+id+"/cancel", nil, f.buyer)
	assert.Equal(t, 200, again.Code)

	assert.Equal(t, 409, testapp.Do(t, f.app, "POST", "/admin/reservations/"+id+"/confirm", nil, f.admin).Code)
}
