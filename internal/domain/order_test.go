package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	all := []OrderStatus{OrderPaymentPending, OrderPaidInEscrow, OrderDispatched, OrderDelivered, OrderReleased, OrderRefunded}
	allowed := map[[2]OrderStatus]bool{
		{OrderPaymentPending, OrderPaidInEscrow}: true,
		{OrderPaidInEscrow, OrderDispatched}:     true,
		{OrderPaidInEscrow, OrderRefunded}:       true,
		{OrderDispatched, OrderDelivered}:        true,
		{OrderDispatched, OrderRefunded}:         true,
		{OrderDelivered, OrderReleased}:          true,
		{OrderDelivered, OrderRefunded}:          true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]OrderStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition("unknown", OrderPaidInEscrow))
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderReleased.Terminal())
	assert.True(t, OrderRefunded.Terminal())
	assert.False(t, OrderDelivered.Terminal())
	assert.True(t, OrderDispatched.Valid())
	assert.False(t, OrderStatus("shipped").Valid())
}
