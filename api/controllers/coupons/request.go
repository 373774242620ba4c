package coupons

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	couponsvc "github.com/angelmondragon/storefront-core/internal/coupons"
)

// CartItemRequest is one line of the cart the coupon is checked against.
type CartItemRequest struct {
	ProductID  uuid.UUID       `json:"productId" validate:"required"`
	CategoryID *uuid.UUID      `json:"categoryId,omitempty"`
	Quantity   int             `json:"quantity" validate:"required,min=1,max=1000"`
	Price      decimal.Decimal `json:"price" validate:"gte=0"`
}

type ValidateCouponRequest struct {
	Code      string            `json:"code" validate:"required,max=64"`
	CartItems []CartItemRequest `json:"cartItems" validate:"required,min=1,max=100,dive"`
	Subtotal  decimal.Decimal   `json:"subtotal" validate:"gte=0"`
}

func (r ValidateCouponRequest) lines() []couponsvc.Line {
	lines := make([]couponsvc.Line, 0, len(r.CartItems))
	for _, item := range r.CartItems {
		lines = append(lines, couponsvc.Line{
			ProductID:  item.ProductID,
			CategoryID: item.CategoryID,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
		})
	}
	return lines
}
