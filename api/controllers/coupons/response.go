package coupons

import (
	"github.com/shopspring/decimal"

	couponsvc "github.com/angelmondragon/storefront-core/internal/coupons"
)

// ValidateCouponResponse carries either the applied coupon or the rejection.
type ValidateCouponResponse struct {
	Valid    bool                 `json:"valid"`
	Coupon   *couponsvc.CouponDTO `json:"coupon,omitempty"`
	Discount *decimal.Decimal     `json:"discount,omitempty"`
	Reason   couponsvc.Reason     `json:"reason,omitempty"`
	Message  string               `json:"message,omitempty"`
}

type ActiveCouponsResponse struct {
	Coupons []couponsvc.CouponDTO `json:"coupons"`
}
