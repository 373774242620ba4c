package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-core/pkg/enums"
)

// OrderCreatedEvent is emitted once an order and its items are committed.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	Total         decimal.Decimal     `json:"total"`
	CouponCode    *string             `json:"coupon_code,omitempty"`
	CustomerEmail string              `json:"customer_email"`
	ItemCount     int                 `json:"item_count"`
}

// OrderPaidEvent is emitted exactly once, by the confirmation that won the
// conditional update.
type OrderPaidEvent struct {
	OrderID          uuid.UUID       `json:"order_id"`
	OrderNumber      string          `json:"order_number"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id"`
	Total            decimal.Decimal `json:"total"`
	PaidAt           time.Time       `json:"paid_at"`

	// CouponOverLimit is set when the coupon reached max_uses before this
	// payment was captured, so the use was not counted.
	CouponOverLimit bool `json:"coupon_over_limit,omitempty"`
}

// OrderStatusChangedEvent records a status change made by an admin or by
// the unpaid-order expiry job, which sets Reason.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Reason      string            `json:"reason,omitempty"`
}
