package orders

import (
	"context"
	"testing"

	"caskmarket-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentDue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.listing(t, 10, domain.InventoryOther, "GBP")
	o := f.checkout(t, CartItem{ListingID: l.ID, Quantity: 2})

	due, cents, err := f.svc.PaymentDue(ctx, f.buyer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, due.ID)
	// (2 x 120.00 + 2 x 1.00 fallback fee) at a 20% deposit.
	assert.Equal(t, int64(4840), cents)

	_, _, err = f.svc.PaymentDue(ctx, f.admin, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, _, err = f.svc.PaymentDue(ctx, domain.Actor{UserID: uuid.New(), Role: f.buyer.Role}, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, _, err = f.svc.PaymentDue(ctx, f.buyer, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.ConfirmPayment(ctx, domain.SystemActor, o.ID)
	require.NoError(t, err)
	_, _, err = f.svc.PaymentDue(ctx, f.buyer, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
