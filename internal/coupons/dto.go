package coupons

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-core/pkg/db/models"
	"github.com/angelmondragon/storefront-core/pkg/enums"
)

// CouponDTO is the public shape of a coupon. It never exposes usage counters.
type CouponDTO struct {
	ID             uuid.UUID          `json:"id"`
	Code           string             `json:"code"`
	Description    string             `json:"description"`
	DiscountType   enums.DiscountType `json:"discountType"`
	DiscountValue  decimal.Decimal    `json:"discountValue"`
	Color          *string            `json:"color,omitempty"`
	MinOrderAmount *decimal.Decimal   `json:"minOrderAmount,omitempty"`
	MinQuantity    *int               `json:"minQuantity,omitempty"`
	Applicability  enums.CouponScope  `json:"applicabilityType"`
	TargetIDs      []string           `json:"targetIds,omitempty"`
	StartDate      *time.Time         `json:"startDate,omitempty"`
	EndDate        *time.Time         `json:"endDate,omitempty"`
}

func ToDTO(c models.Coupon) CouponDTO {
	targets := []string(c.TargetIDs)
	if len(targets) == 0 {
		targets = nil
	}
	return CouponDTO{
		ID:             c.ID,
		Code:           c.Code,
		Description:    c.Description,
		DiscountType:   c.DiscountType,
		DiscountValue:  c.DiscountValue,
		Color:          c.Color,
		MinOrderAmount: c.MinOrderAmount,
		MinQuantity:    c.MinQuantity,
		Applicability:  c.Scope,
		TargetIDs:      targets,
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
	}
}

// Validation pairs the engine result with the coupon it was computed for.
// Coupon is nil when the code did not resolve.
type Validation struct {
	Coupon *models.Coupon
	Result Result
}
