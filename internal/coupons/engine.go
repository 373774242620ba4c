package coupons

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-core/pkg/db/models"
	"github.com/angelmondragon/storefront-core/pkg/enums"
)

// Reason explains why a coupon was rejected.
type Reason string

const (
	ReasonNotFound             Reason = "not_found"
	ReasonInactive             Reason = "inactive"
	ReasonNotYetValid          Reason = "not_yet_valid"
	ReasonExpired              Reason = "expired"
	ReasonUsageLimitReached    Reason = "usage_limit_reached"
	ReasonBelowMinimumOrder    Reason = "below_minimum_order"
	ReasonBelowMinimumQuantity Reason = "below_minimum_quantity"
	ReasonNotApplicable        Reason = "not_applicable"
)

var reasonMessages = map[Reason]string{
	ReasonNotFound:             "Coupon code not found",
	ReasonInactive:             "This coupon is no longer active",
	ReasonNotYetValid:          "This coupon is not valid yet",
	ReasonExpired:              "This coupon has expired",
	ReasonUsageLimitReached:    "This coupon has reached its usage limit",
	ReasonBelowMinimumOrder:    "Order total is below the minimum for this coupon",
	ReasonBelowMinimumQuantity: "Add more items to use this coupon",
	ReasonNotApplicable:        "This coupon does not apply to the items in your cart",
}

// Message is the customer facing text for r.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "Coupon cannot be applied"
}

// Line is one cart line as the engine sees it.
type Line struct {
	ProductID  uuid.UUID
	CategoryID *uuid.UUID
	Quantity   int
	UnitPrice  decimal.Decimal
}

func (l Line) total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Result is the outcome of Validate. Discount is zero whenever Valid is false.
type Result struct {
	Valid              bool
	Reason             Reason
	Discount           decimal.Decimal
	ApplicableSubtotal decimal.Decimal
}

func rejected(reason Reason) Result {
	return Result{Reason: reason, Discount: decimal.Zero, ApplicableSubtotal: decimal.Zero}
}

// NormalizeCode trims and upper-cases a coupon code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate decides whether coupon applies to the cart and computes its
// discount. A nil coupon is reported as not found. Checks run in a fixed
// order and the first failure wins. Validate never touches UsedCount.
func Validate(coupon *models.Coupon, lines []Line, subtotal decimal.Decimal, now time.Time) Result {
	if coupon == nil {
		return rejected(ReasonNotFound)
	}
	if reason, ok := usable(coupon, now); !ok {
		return rejected(reason)
	}
	if coupon.MinOrderAmount != nil && subtotal.LessThan(*coupon.MinOrderAmount) {
		return rejected(ReasonBelowMinimumOrder)
	}
	if coupon.MinQuantity != nil && totalQuantity(lines) < *coupon.MinQuantity {
		return rejected(ReasonBelowMinimumQuantity)
	}

	applicable, matched := applicableSubtotal(coupon, lines, subtotal)
	if !matched {
		return rejected(ReasonNotApplicable)
	}

	return Result{
		Valid:              true,
		Discount:           Discount(coupon.DiscountType, coupon.DiscountValue, applicable),
		ApplicableSubtotal: applicable,
	}
}

// IsUsable reports whether coupon can be offered right now, ignoring the cart.
func IsUsable(coupon *models.Coupon, now time.Time) bool {
	if coupon == nil {
		return false
	}
	_, ok := usable(coupon, now)
	return ok
}

func usable(coupon *models.Coupon, now time.Time) (Reason, bool) {
	switch {
	case !coupon.IsActive:
		return ReasonInactive, false
	case coupon.StartDate != nil && now.Before(*coupon.StartDate):
		return ReasonNotYetValid, false
	case coupon.EndDate != nil && now.After(*coupon.EndDate):
		return ReasonExpired, false
	case coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses:
		return ReasonUsageLimitReached, false
	}
	return "", true
}

// Discount applies a discount of the given type to amount, rounded half-up
// to two places and never more than amount.
func Discount(kind enums.DiscountType, value, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() || !value.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch kind {
	case enums.DiscountTypePercentage:
		discount = amount.Mul(value).Div(decimal.NewFromInt(100))
	case enums.DiscountTypeFixed:
		discount = value
	default:
		return decimal.Zero
	}

	discount = decimal.Min(discount, amount)
	return discount.Round(2)
}

// ApplyDiscount returns max(0, subtotal - discount).
func ApplyDiscount(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

func totalQuantity(lines []Line) int {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}

func applicableSubtotal(coupon *models.Coupon, lines []Line, subtotal decimal.Decimal) (decimal.Decimal, bool) {
	switch coupon.Scope {
	case enums.CouponScopeProducts, enums.CouponScopeCategories:
	default:
		return subtotal, true
	}

	targets := make(map[string]struct{}, len(coupon.TargetIDs))
	for _, id := range coupon.TargetIDs {
		targets[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}

	sum := decimal.Zero
	matched := false
	for _, line := range lines {
		var key string
		if coupon.Scope == enums.CouponScopeProducts {
			key = line.ProductID.String()
		} else if line.CategoryID != nil {
			key = line.CategoryID.String()
		}
		if key == "" {
			continue
		}
		if _, ok := targets[key]; ok {
			matched = true
			sum = sum.Add(line.total())
		}
	}
	return sum, matched
}
