package orders

import (
	"testing"
	"time"

	"caskmarket-backend/internal/application/fees"
	"caskmarket-backend/internal/application/ledger"
	ordersvc "caskmarket-backend/internal/application/orders"
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
	app    *fiber.App
	db     *gorm.DB
	buyer  domain.Actor
	seller domain.Actor
	admin  domain.Actor
}

func setupOrdersTest(t *testing.T) *fixture {
	db := testdb.New(t)
	f := &fixture{
		db:     db,
		buyer:  domain.Actor{UserID: uuid.New(), Role: constants.Buyer},
		seller: domain.Actor{UserID: uuid.New(), Role: constants.Seller},
		admin:  domain.Actor{UserID: uuid.New(), Role: constants.Admin},
	}
	h := &Handlers{Service: &ordersvc.Service{
		DB:     db,
		Ledger: &ledger.Service{DB: db},
		Fees:   &fees.Service{DB: db},
		Now:    func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC) },
	}}
	app := testapp.New()
	app.Post("/orders/checkout", h.Checkout)
	app.Get("/orders", h.ListOrders)
	app.Get("/orders/:id", h.GetOrder)
	app.Get("/orders/:id/history", h.GetHistory)
	app.Get("/orders/:id/ledger", h.GetLedger)
	app.Post("/orders/:id/confirm-receipt", h.ConfirmReceipt())
	app.Post("/reservations/:id/order", h.CreateFromReservation)
	app.Get("/admin/orders", h.ListAllOrders)
	app.Post("/admin/orders/:id/confirm-payment", h.ConfirmPayment())
	app.Post("/admin/orders/:id/dispatch", h.Dispatch())
	app.Post("/admin/orders/:id/deliver", h.Deliver())
	app.Post("/admin/orders/:id/release", h.Release())
	app.Post("/admin/orders/:id/refund", h.Refund())
	f.app = app
	return f
}

func (f *fixture) listing(t *testing.T, qty int, inv domain.InventoryType, currency string) domain.Listing {
	t.Helper()
	l := domain.Listing{
		SellerID: f.seller.UserID, Title: "Islay 10yo", Category: "whisky",
		Packaging: domain.PackagingBottle, QuantityAvailable: qty, MinQuantity: 1,
		UnitPrice: decimal.RequireFromString("50.00"), Currency: currency, InventoryType: inv,
		Status: domain.ModerationApproved, Visibility: domain.VisibilityLive,
	}
	require.NoError(t, f.db.Create(&l).Error)
	return l
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var l domain.Listing
	require.NoError(t, f.db.First(&l, "id = ?", id).Error)
	return l.QuantityAvailable
}

func cart(lines ...interface{}) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(lines)/2)
	for i := 0; i+1 < len(lines); i += 2 {
		items = append(items, map[string]interface{}{"listing_id": lines[i].(uuid.UUID).String(), "quantity": lines[i+1]})
	}
	return map[string]interface{}{"items": items}
}

func TestCheckout(t *testing.T) {
	f := setupOrdersTest(t)
	bonded := f.listing(t, 10, domain.InventoryBondedWarehouse, "GBP")
	brand := f.listing(t, 10, domain.InventoryThroughBrand, "GBP")

	res := testapp.Do(t, f.app, "POST", "/orders/checkout", cart(bonded.ID, 2), f.buyer)
	require.Equal(t, 201, res.Code)
	data := res.Data()
	assert.Equal(t, "payment_pending", data["status"])
	assert.EqualValues(t, 100, data["payment_percentage"])
	assert.Len(t, data["items"], 1)

	mixed := testapp.Do(t, f.app, "POST", "/orders/checkout", cart(bonded.ID, 1, brand.ID, 1), f.buyer)
	assert.Equal(t, 422, mixed.Code)

	assert.Equal(t, 400, testapp.Do(t, f.app, "POST", "/orders/checkout", map[string]interface{}{"items": []interface{}{}}, f.buyer).Code)
	assert.Equal(t, 400, testapp.Do(t, f.app, "POST", "/orders/checkout",
		map[string]interface{}{"items": []map[string]interface{}{{"listing_id": "x", "quantity": 1}}}, f.buyer).Code)
	assert.Equal(t, 403, testapp.Do(t, f.app, "POST", "/orders/checkout", cart(bonded.ID, 1), f.seller).Code)

	// Checkout never touches stock.
	assert.Equal(t, 10, f.stock(t, bonded.ID))
}

func TestCheckout_IdempotencyKeyHeader(t *testing.T) {
	f := setupOrdersTest(t)
	l := f.listing(t, 10, domain.InventoryOther, "EUR")

	first := testapp.Do(t, f.app, "POST", "/orders/checkout", cart(l.ID, 1), f.buyer, IdempotencyKeyHeader, "cart-7781")
	require.Equal(t, 201, first.Code)
	second := testapp.Do(t, f.app, "POST", "/orders/checkout", cart(l.ID, 1), f.buyer, IdempotencyKeyHeader, "cart-7781")
	require.Equal(t, 201, second.Code)
	assert.Equal(t, first.Data()["id"], second.Data()["id"])

	var count int64
	require.NoError(t, f.db.Model(&domain.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	f := setupOrdersTest(t)
	l := f.listing(t, 5, domain.InventoryThroughBrand, "GBP")
	created := testapp.Do(t, f.app, "POST", "/orders/checkout", cart(l.ID, 3), f.buyer)
	require.Equal(t, 201, created.Code)
	id := created.Data()["id"].(string)
	base := "/admin/orders/" + id

	// Skipping escrow is rejected.
	assert.Equal(t, 409, testapp.Do(t, f.app, "POST", base+"/release", nil, f.admin).Code)
	assert.Equal(t, 403, testapp.Do(t, f.app, "POST", base+"/confirm-payment", nil, f.buyer).Code)

	paid := testapp.Do(t, f.app, "POST", base+"/confirm-payment", nil, f.admin)
	require.Equal(t, 200, paid.Code)
	assert.Equal(t, "paid_in_escrow", paid.Data()["status"])
	assert.Equal(t, 2, f.stock(t, l.ID))

	assert.Equal(t, 400, testapp.Do(t, f.app, "POST", base+"/dispatch", map[string]string{"carrier": "DHL"}, f.admin).Code)
	dispatched := testapp.Do(t, f.app, "POST", base+"/dispatch",
		map[string]string{"carrier": "DHL", "tracking_reference": "JD0001"}, f.admin)
	require.Equal(t, 200, dispatched.Code)
	assert.Equal(t, "JD0001", dispatched.Data()["tracking_reference"])

	stranger := domain.Actor{UserID: uuid.New(), Role: constants.Buyer}
	assert.Equal(t, 403, testapp.Do(t, f.app, "POST", "/orders/"+id+"/confirm-receipt", nil, stranger).Code)
	delivered := testapp.Do(t, f.app, "POST", "/orders/"+id+"/confirm-receipt", nil, f.buyer)
	require.Equal(t, 200, delivered.Code)
	assert.Equal(t, "delivered", delivered.Data()["status"])

	released := testapp.Do(t, f.app, "POST", base+"/release", nil, f.admin)
	require.Equal(t, 200, released.Code)
	assert.Equal(t, "released", released.Data()["status"])
	assert.Equal(t, 409, testapp.Do(t, f.app, "POST", base+"/refund", map[string]string{"reason": "late"}, f.admin).Code)

	history := testapp.Do(t, f.app, "GET", "/orders/"+id+"/history", nil, f.buyer)
	require.Equal(t, 200, history.Code)
	assert.Len(t, history.List(), 5)

	ledgerRes := testapp.Do(t, f.app, "GET", "/orders/"+id+"/ledger", nil, f.buyer)
	require.Equal(t, 200, ledgerRes.Code)
	assert.Len(t, ledgerRes.List(), 1)
	assert.Equal(t, 403, testapp.Do(t, f.app, "GET", "/orders/"+id+"/ledger", nil, f.seller).Code)
}

func TestRefundRestoresStockOverHTTP(t *testing.T) {
	f := setupOrdersTest(t)
	l := f.listing(t, 4, domain.InventoryOther, "GBP")
	created := testapp.Do(t, f.app, "POST", "/orders/checkout", cart(l.ID, 4), f.buyer)
	require.Equal(t, 201, created.Code)
	base := "/admin/orders/" + created.Data()["id"].(string)

	require.Equal(t, 200, testapp.Do(t, f.app, "POST", base+"/confirm-payment", nil, f.admin).Code)
	assert.Equal(t, 0, f.stock(t, l.ID))

	refunded := testapp.Do(t, f.app, "POST", base+"/refund", map[string]string{"reason": "cask damaged"}, f.admin)
	require.Equal(t, 200, refunded.Code)
	assert.Equal(t, "refunded", refunded.Data()["status"])
	assert.Equal(t, "cask damaged", refunded.Data()["refund_reason"])
	assert.Equal(t, 4, f.stock(t, l.ID))

	again := testapp.Do(t, f.app, "POST", base+"/refund", nil, f.admin)
	assert.Equal(t, 200, again.Code)
	assert.Equal(t, 4, f.stock(t, l.ID))
}

func TestInsufficientStockAtPayment(t *testing.T) {
	f := setupOrdersTest(t)
	l := f.listing(t, 5, domain.InventoryBondedWarehouse, "GBP")
	a := testapp.Do(t, f.app, "POST", "/orders/checkout", cart(l.ID, 3), f.buyer)
	b := testapp.Do(t, f.app, "POST", "/orders/checkout", cart(l.ID, 3), f.buyer)
	require.Equal(t, 201, a.Code)
	require.Equal(t, 201, b.Code)

	assert.Equal(t, 200, testapp.Do(t, f.app, "POST", "/admin/orders/"+a.Data()["id"].(string)+"/confirm-payment", nil, f.admin).Code)
	short := testapp.Do(t, f.app, "POST", "/admin/orders/"+b.Data()["id"].(string)+"/confirm-payment", nil, f.admin)
	assert.Equal(t, 409, short.Code)
	assert.Equal(t, 2, f.stock(t, l.ID))

	still := testapp.Do(t, f.app, "GET", "/orders/"+b.Data()["id"].(string), nil, f.buyer)
	assert.Equal(t, "payment_pending", still.Data()["status"])
}

func TestCreateFromReservationAndLists(t *testing.T) {
	f := setupOrdersTest(t)
	l := f.listing(t, 10, domain.InventoryThroughBrand, "GBP")
	confirmedAt := time.Date(2026, 5, 3, 12, 0, 0, 0, time.UTC)
	r := domain.Reservation{
		ListingID: l.ID, BuyerID: f.buyer.UserID, SellerID: f.seller.UserID, Quantity: 2,
		UnitPrice: l.UnitPrice, Currency: "GBP", Status: domain.ReservationConfirmed,
		ExpiresAt: confirmedAt.Add(72 * time.Hour), ConfirmedAt: &confirmedAt,
	}
	require.NoError(t, f.db.Create(&r).Error)

	res := testapp.Do(t, f.app, "POST", "/reservations/"+r.ID.String()+"/order", nil, f.buyer)
	require.Equal(t, 201, res.Code)
	assert.EqualValues(t, 20, res.Data()["payment_percentage"])
	again := testapp.Do(t, f.app, "POST", "/reservations/"+r.ID.String()+"/order", nil, f.buyer)
	assert.Equal(t, res.Data()["id"], again.Data()["id"])

	assert.Len(t, testapp.Do(t, f.app, "GET", "/orders", nil, f.buyer).List(), 1)
	assert.Len(t, testapp.Do(t, f.app, "GET", "/orders", nil, f.seller).List(), 1)
	other := domain.Actor{UserID: uuid.New(), Role: constants.Seller}
	assert.Len(t, testapp.Do(t, f.app, "GET", "/orders", nil, other).List(), 0)
	assert.Len(t, testapp.Do(t, f.app, "GET", "/admin/orders?status=payment_pending", nil, f.admin).List(), 1)
	assert.Len(t, testapp.Do(t, f.app, "GET", "/admin/orders?status=released", nil, f.admin).List(), 0)
	assert.Equal(t, 403, testapp.Do(t, f.app, "GET", "/admin/orders", nil, f.buyer).Code)
	assert.Equal(t, 404, testapp.Do(t, f.app, "GET", "/orders/"+uuid.NewString(), nil, f.buyer).Code)
}
