package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-core/pkg/db/models"
	"github.com/angelmondragon/storefront-core/pkg/enums"
)

// Customer carries the buyer's contact details.
type Customer struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"required,min=6,max=32"`
}

// Shipping carries the delivery address.
type Shipping struct {
	Address    string `json:"address" validate:"required,max=500"`
	City       string `json:"city" validate:"required,max=120"`
	State      string `json:"state" validate:"required,max=120"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=80"`
}

// LineInput is one requested line. Prices always come from the catalog.
type LineInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=1000"`
}

// CreateOrderInput is the checkout request. Subtotal, Discount and Total are
// the client's figures and must match the server's recomputation.
type CreateOrderInput struct {
	Customer      Customer            `json:"customer" validate:"required"`
	Shipping      Shipping            `json:"shipping" validate:"required"`
	Items         []LineInput         `json:"items" validate:"required,min=1,max=100,dive"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      *decimal.Decimal    `json:"discount,omitempty"`
	Total         decimal.Decimal     `json:"total"`
	CouponCode    string              `json:"couponCode,omitempty" validate:"omitempty,max=64"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod" validate:"required,oneof=online cod"`

	// OwnerIdentity is filled from the authenticated caller, never from the body.
	OwnerIdentity string `json:"-"`
}

// ConfirmPaymentInput is the signed payload returned by the gateway checkout.
type ConfirmPaymentInput struct {
	OrderID          uuid.UUID `json:"orderId" validate:"required"`
	GatewayPaymentID string    `json:"gatewayPaymentId" validate:"required,max=128"`
	GatewayOrderID   string    `json:"gatewayOrderId" validate:"required,max=128"`
	Signature        string    `json:"signature" validate:"required,hexadecimal,len=64"`
}

// StatusUpdateInput is an administrative status change.
type StatusUpdateInput struct {
	OrderID       uuid.UUID
	Status        string
	ActorIdentity string
	ActorRole     string
}

// ListInput pages an order listing. Status optionally filters by one status.
type ListInput struct {
	Status string
	Limit  int
	Cursor string
}

// Viewer identifies who is reading an order.
type Viewer struct {
	Identity string
	Admin    bool
}

type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// OrderDTO is the public order shape. Owner identity is never exposed.
type OrderDTO struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"orderNumber"`
	Customer         Customer            `json:"customer"`
	Shipping         Shipping            `json:"shipping"`
	Items            []OrderItemDTO      `json:"items"`
	Subtotal         decimal.Decimal     `json:"subtotal"`
	Discount         decimal.Decimal     `json:"discount"`
	Total            decimal.Decimal     `json:"total"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentStatus    enums.PaymentStatus `json:"paymentStatus"`
	PaymentMethod    enums.PaymentMethod `json:"paymentMethod"`
	GatewayOrderID   *string             `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID *string             `json:"gatewayPaymentId,omitempty"`
	CouponCode       *string             `json:"couponCode,omitempty"`
	PaidAt           *time.Time          `json:"paidAt,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

func ToDTO(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return &OrderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Customer: Customer{
			Name:  o.CustomerName,
			Email: o.CustomerEmail,
			Phone: o.CustomerPhone,
		},
		Shipping: Shipping{
			Address:    o.ShippingAddress,
			City:       o.ShippingCity,
			State:      o.ShippingState,
			PostalCode: o.ShippingPostalCode,
			Country:    o.ShippingCountry,
		},
		Items:            items,
		Subtotal:         o.Subtotal,
		Discount:         o.Discount,
		Total:            o.Total,
		Status:           o.Status,
		PaymentStatus:    o.PaymentStatus,
		PaymentMethod:    o.PaymentMethod,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		CouponCode:       o.CouponCode,
		PaidAt:           o.PaidAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}
