package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartTotalRecomputesFromLines(t *testing.T) {
	cart := Cart{Lines: []CartLine{
		{MenuItemID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("5.00"), Subtotal: decimal.RequireFromString("10.00")},
		{MenuItemID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("3.25"), Subtotal: decimal.RequireFromString("3.25")},
	}}
	assert.True(t, cart.Total().Equal(decimal.RequireFromString("13.25")))

	cart.Lines[1].SetQuantity(3)
	assert.True(t, cart.Lines[1].Subtotal.Equal(decimal.RequireFromString("9.75")))
	assert.True(t, cart.Total().Equal(decimal.RequireFromString("19.75")))
}

func TestCartLineFor(t *testing.T) {
	cart := Cart{Lines: []CartLine{{ID: 4, MenuItemID: 7}}}
	assert.Equal(t, uint(4), cart.LineFor(7).ID)
	assert.Nil(t, cart.LineFor(8))
}

func TestParseStatuses(t *testing.T) {
	st, ok := ParseOrderStatus("OUT_FOR_DELIVERY")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusOutForDelivery, st)

	_, ok = ParseOrderStatus("shipped")
	assert.False(t, ok)

	ps, ok := ParsePaymentStatus("FAILED")
	assert.True(t, ok)
	assert.Equal(t, PaymentStatusFailed, ps)
}

func TestHasDeliveryAddress(t *testing.T) {
	empty := ""
	addr := "12 Baker St"
	assert.False(t, (&User{}).HasDeliveryAddress())
	assert.False(t, (&User{Address: &empty}).HasDeliveryAddress())
	assert.True(t, (&User{Address: &addr}).HasDeliveryAddress())
}
