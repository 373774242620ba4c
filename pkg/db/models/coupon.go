package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-core/pkg/enums"
)

// Coupon is a discount code. Code is stored upper-case; UsedCount only moves
// through atomic increments.
type Coupon struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string             `gorm:"column:code;not null"`
	Description    string             `gorm:"column:description;not null;default:''"`
	DiscountType   enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue  decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	Color          *string            `gorm:"column:color"`
	MinOrderAmount *decimal.Decimal   `gorm:"column:min_order_amount;type:numeric(12,2)"`
	MinQuantity    *int               `gorm:"column:min_quantity"`
	Scope          enums.CouponScope  `gorm:"column:applicability_type;type:text;not null;default:'all'"`
	TargetIDs      pq.StringArray     `gorm:"column:target_ids;type:text[]"`
	IsActive       bool               `gorm:"column:is_active;not null;default:true"`
	StartDate      *time.Time         `gorm:"column:start_date"`
	EndDate        *time.Time         `gorm:"column:end_date"`
	MaxUses        *int               `gorm:"column:max_uses"`
	UsedCount      int                `gorm:"column:used_count;not null;default:0"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeSave keeps the stored code trimmed and upper-case; ux_coupons_code is
// unique on UPPER(code).
func (c *Coupon) BeforeSave(tx *gorm.DB) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	return nil
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
