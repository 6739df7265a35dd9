package policies

import (
	"testing"

	"caskmarket-backend/internal/constants"
	"caskmarket-backend/internal/domain"
	roles "caskmarket-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoleAuthorizer(t *testing.T) {
	buyer := domain.Actor{UserID: uuid.New(), Role: roles.Buyer}
	otherBuyer := domain.Actor{UserID: uuid.New(), Role: roles.Buyer}
	seller := domain.Actor{UserID: uuid.New(), Role: roles.Seller}
	admin := domain.Actor{UserID: uuid.New(), Role: roles.Admin}
	res := &Resource{BuyerID: buyer.UserID, SellerIDs: []uuid.UUID{seller.UserID}}

	a := RoleAuthorizer{}

	t.Run("buyer owns resource", func(t *testing.T) {
		assert.NoError(t, a.Authorize(buyer, constants.ViewOrder, res))
		assert.NoError(t, a.Authorize(buyer, constants.ConfirmReceipt, res))
	})
	t.Run("other buyer forbidden", func(t *testing.T) {
		assert.ErrorIs(t, a.Authorize(otherBuyer, constants.ViewOrder, res), domain.ErrForbidden)
	})
	t.Run("seller reads own lines only", func(t *testing.T) {
		assert.NoError(t, a.Authorize(seller, constants.ViewOrder, res))
		assert.ErrorIs(t, a.Authorize(seller, constants.ViewOrder, &Resource{BuyerID: buyer.UserID}), domain.ErrForbidden)
	})
	t.Run("admin only actions", func(t *testing.T) {
		for _, p := range []string{constants.ConfirmReservation, constants.ExtendReservation, constants.ReleaseOrder, constants.RefundOrder, constants.DispatchOrder} {
			assert.ErrorIs(t, a.Authorize(buyer, p, res), domain.ErrForbidden, p)
			assert.ErrorIs(t, a.Authorize(seller, p, res), domain.ErrForbidden, p)
			assert.NoError(t, a.Authorize(admin, p, res), p)
		}
	})
	t.Run("system actor limited to payment signal", func(t *testing.T) {
		assert.NoError(t, a.Authorize(domain.SystemActor, constants.ConfirmPayment, res))
		assert.ErrorIs(t, a.Authorize(domain.SystemActor, constants.ReleaseOrder, res), domain.ErrForbidden)
	})
	t.Run("unknown role", func(t *testing.T) {
		assert.ErrorIs(t, a.Authorize(domain.Actor{UserID: uuid.New(), Role: "viewer"}, constants.ViewOrder, nil), domain.ErrForbidden)
	})
}
