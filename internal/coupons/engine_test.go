package coupons

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-core/pkg/db/models"
	"github.com/angelmondragon/storefront-core/pkg/enums"
)

var engineNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func baseCoupon(kind enums.DiscountType, value string) *models.Coupon {
	return &models.Coupon{
		ID:            uuid.New(),
		Code:          "TEST",
		DiscountType:  kind,
		DiscountValue: dec(value),
		Scope:         enums.CouponScopeAll,
		IsActive:      true,
	}
}

func line(price string, qty int) Line {
	return Line{ProductID: uuid.New(), Quantity: qty, UnitPrice: dec(price)}
}

func TestValidatePercentageWithMinimumOrder(t *testing.T) {
	coupon := baseCoupon(enums.DiscountTypePercentage, "10")
	coupon.Code = "SAVE10"
	coupon.MinOrderAmount = decPtr("500")

	res := Validate(coupon, []Line{line("1000", 1)}, dec("1000"), engineNow)
	require.True(t, res.Valid)
	assert.Equal(t, "100", res.Discount.String())
	assert.Equal(t, "100.00", res.Discount.StringFixed(2))

	res = Validate(coupon, []Line{line("499.99", 1)}, dec("499.99"), engineNow)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonBelowMinimumOrder, res.Reason)
	assert.True(t, res.Discount.IsZero())
}

func TestValidateFixedCapsAtApplicableSubtotal(t *testing.T) {
	target := line("75", 2)
	other := line("400", 1)
	coupon := baseCoupon(enums.DiscountTypeFixed, "200")
	coupon.Code = "FLAT200"
	coupon.Scope = enums.CouponScopeProducts
	coupon.TargetIDs = pq.StringArray{target.ProductID.String()}

	res := Validate(coupon, []Line{target, other}, dec("550"), engineNow)
	require.True(t, res.Valid)
	assert.True(t, res.ApplicableSubtotal.Equal(dec("150")))
	assert.Equal(t, "150.00", res.Discount.StringFixed(2))
}

func TestValidateExpiredYesterday(t *testing.T) {
	coupon := baseCoupon(enums.DiscountTypePercentage, "10")
	coupon.EndDate = timePtr(engineNow.Add(-24 * time.Hour))

	res := Validate(coupon, []Line{line("100", 1)}, dec("100"), engineNow)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonExpired, res.Reason)
}

func TestValidateCheckOrder(t *testing.T) {
	cart := []Line{line("100", 1)}
	subtotal := dec("100")

	tests := []struct {
		name   string
		mutate func(c *models.Coupon)
		want   Reason
	}{
		{
			name: "inactive beats expired",
			mutate: func(c *models.Coupon) {
				c.IsActive = false
				c.EndDate = timePtr(engineNow.Add(-time.Hour))
			},
			want: ReasonInactive,
		},
		{
			name:   "not yet valid",
			mutate: func(c *models.Coupon) { c.StartDate = timePtr(engineNow.Add(time.Hour)) },
			want:   ReasonNotYetValid,
		},
		{
			name: "expired beats usage limit",
			mutate: func(c *models.Coupon) {
				c.EndDate = timePtr(engineNow.Add(-time.Second))
				c.MaxUses = intPtr(1)
				c.UsedCount = 1
			},
			want: ReasonExpired,
		},
		{
			name: "usage limit beats minimum order",
			mutate: func(c *models.Coupon) {
				c.MaxUses = intPtr(5)
				c.UsedCount = 5
				c.MinOrderAmount = decPtr("1000")
			},
			want: ReasonUsageLimitReached,
		},
		{
			name: "minimum order beats minimum quantity",
			mutate: func(c *models.Coupon) {
				c.MinOrderAmount = decPtr("100.01")
				c.MinQuantity = intPtr(3)
			},
			want: ReasonBelowMinimumOrder,
		},
		{
			name:   "minimum quantity",
			mutate: func(c *models.Coupon) { c.MinQuantity = intPtr(2) },
			want:   ReasonBelowMinimumQuantity,
		},
		{
			name: "category scope without a matching line",
			mutate: func(c *models.Coupon) {
				c.Scope = enums.CouponScopeCategories
				c.TargetIDs = pq.StringArray{uuid.NewString()}
			},
			want: ReasonNotApplicable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coupon := baseCoupon(enums.DiscountTypePercentage, "10")
			tt.mutate(coupon)
			res := Validate(coupon, cart, subtotal, engineNow)
			assert.False(t, res.Valid)
			assert.Equal(t, tt.want, res.Reason)
		})
	}

	res := Validate(nil, cart, subtotal, engineNow)
	assert.Equal(t, ReasonNotFound, res.Reason)
}

func TestValidateWindowBoundsAreInclusive(t *testing.T) {
	coupon := baseCoupon(enums.DiscountTypeFixed, "5")
	coupon.StartDate = timePtr(engineNow)
	coupon.EndDate = timePtr(engineNow)

	res := Validate(coupon, []Line{line("20", 1)}, dec("20"), engineNow)
	assert.True(t, res.Valid)
}

func TestValidateCategoryScopeSumsMatchingLines(t *testing.T) {
	category := uuid.New()
	a := line("30", 2)
	a.CategoryID = &category
	b := line("45.50", 1)
	b.CategoryID = &category
	c := line("999", 1)

	coupon := baseCoupon(enums.DiscountTypePercentage, "15")
	coupon.Scope = enums.CouponScopeCategories
	coupon.TargetIDs = pq.StringArray{category.String()}

	res := Validate(coupon, []Line{a, b, c}, dec("1104.50"), engineNow)
	require.True(t, res.Valid)
	assert.True(t, res.ApplicableSubtotal.Equal(dec("105.50")))
	// 105.50 * 0.15 = 15.825
	assert.Equal(t, "15.83", res.Discount.StringFixed(2))
}

func TestValidateTargetsMatchCaseInsensitively(t *testing.T) {
	l := line("10", 1)
	coupon := baseCoupon(enums.DiscountTypeFixed, "3")
	coupon.Scope = enums.CouponScopeProducts
	coupon.TargetIDs = pq.StringArray{" " + strings.ToUpper(l.ProductID.String())}

	res := Validate(coupon, []Line{l}, dec("10"), engineNow)
	assert.True(t, res.Valid)
}

func TestValidateIsPureAndLeavesUsageAlone(t *testing.T) {
	coupon := baseCoupon(enums.DiscountTypePercentage, "20")
	coupon.MaxUses = intPtr(10)
	coupon.UsedCount = 3
	cart := []Line{line("12.34", 3), line("7", 2)}

	first := Validate(coupon, cart, dec("51.02"), engineNow)
	second := Validate(coupon, cart, dec("51.02"), engineNow)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, coupon.UsedCount)
}

func TestDiscountProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		amount := decimal.New(rng.Int63n(1_000_000), -2)
		pct := decimal.NewFromInt(rng.Int63n(101))
		fixed := decimal.New(rng.Int63n(2_000_000), -2)

		p := Discount(enums.DiscountTypePercentage, pct, amount)
		assert.True(t, p.LessThanOrEqual(amount), "percentage %s of %s", pct, amount)
		assert.True(t, p.Equal(amount.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)), "percentage %s of %s", pct, amount)

		f := Discount(enums.DiscountTypeFixed, fixed, amount)
		assert.True(t, f.LessThanOrEqual(amount))
		if fixed.GreaterThan(amount) {
			assert.True(t, f.Equal(amount), "fixed %s caps at %s", fixed, amount)
		} else {
			assert.True(t, f.Equal(fixed))
		}
		assert.False(t, ApplyDiscount(amount, f).IsNegative())
	}
}

func TestDiscountEdgeCases(t *testing.T) {
	assert.True(t, Discount(enums.DiscountTypeFixed, dec("10"), decimal.Zero).IsZero())
	assert.True(t, Discount(enums.DiscountTypePercentage, decimal.Zero, dec("10")).IsZero())
	assert.True(t, Discount("bogus", dec("10"), dec("10")).IsZero())
	// half-up on the third decimal
	assert.Equal(t, "0.01", Discount(enums.DiscountTypePercentage, dec("1"), dec("0.5")).StringFixed(2))
	assert.Equal(t, "0.00", ApplyDiscount(dec("10"), dec("12")).StringFixed(2))
}

func TestIsUsable(t *testing.T) {
	coupon := baseCoupon(enums.DiscountTypeFixed, "1")
	assert.True(t, IsUsable(coupon, engineNow))

	coupon.MinOrderAmount = decPtr("1000000")
	assert.True(t, IsUsable(coupon, engineNow), "cart checks do not apply")

	coupon.MaxUses = intPtr(2)
	coupon.UsedCount = 2
	assert.False(t, IsUsable(coupon, engineNow))
	assert.False(t, IsUsable(nil, engineNow))
}

func TestNormalizeCodeAndMessages(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	assert.Equal(t, "This coupon has expired", ReasonExpired.Message())
	assert.NotEmpty(t, Reason("other").Message())
}
