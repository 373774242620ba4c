package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, status := range OrderStatusValues() {
		parsed, err := ParseOrderStatus(string(status))
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}
	_, err := ParseOrderStatus("refunded")
	assert.Error(t, err)
	assert.False(t, OrderStatus("PENDING").IsValid())
}

func TestParsePaymentMethod(t *testing.T) {
	method, err := ParsePaymentMethod("cod")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCOD, method)

	_, err = ParsePaymentMethod("card")
	assert.Error(t, err)
}

func TestCouponEnums(t *testing.T) {
	assert.True(t, DiscountTypeFixed.IsValid())
	assert.False(t, DiscountType("bogo").IsValid())
	scope, err := ParseCouponScope("categories")
	require.NoError(t, err)
	assert.Equal(t, CouponScopeCategories, scope)
	_, err = ParseCouponScope("brands")
	assert.Error(t, err)
}

func TestPaymentStatusAndOutboxEvents(t *testing.T) {
	assert.True(t, PaymentStatusPaid.IsValid())
	_, err := ParsePaymentStatus("settled")
	assert.Error(t, err)

	evt, err := ParseOutboxEventType("order_paid")
	require.NoError(t, err)
	assert.Equal(t, EventOrderPaid, evt)
	assert.True(t, AggregateOrder.IsValid())
}
