package enums

import "fmt"

// CouponScope restricts which cart lines a coupon discounts.
type CouponScope string

const (
	CouponScopeAll        CouponScope = "all"
	CouponScopeProducts   CouponScope = "products"
	CouponScopeCategories CouponScope = "categories"
)

var validCouponScopes = []CouponScope{
	CouponScopeAll,
	CouponScopeProducts,
	CouponScopeCategories,
}

func (c CouponScope) String() string {
	return string(c)
}

func (c CouponScope) IsValid() bool {
	for _, candidate := range validCouponScopes {
		if candidate == c {
			return true
		}
	}
	return false
}

func ParseCouponScope(value string) (CouponScope, error) {
	for _, candidate := range validCouponScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon scope %q", value)
}
