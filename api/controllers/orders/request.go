package orders

import (
	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/storefront-core/api/validators"
	ordersvc "github.com/angelmondragon/storefront-core/internal/orders"
)

func init() {
	validators.RegisterStructValidation(validateCreateAmounts, ordersvc.CreateOrderInput{})
}

// StatusUpdateRequest is the admin body for PATCH /orders/{orderId}/status.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

func sanitizeCreate(in *ordersvc.CreateOrderInput) {
	in.Customer.Name = validators.SanitizeString(in.Customer.Name, 120)
	in.Customer.Email = validators.SanitizeString(in.Customer.Email, 254)
	in.Customer.Phone = validators.SanitizeString(in.Customer.Phone, 32)
	in.Shipping.Address = validators.SanitizeString(in.Shipping.Address, 500)
	in.Shipping.City = validators.SanitizeString(in.Shipping.City, 120)
	in.Shipping.State = validators.SanitizeString(in.Shipping.State, 120)
	in.Shipping.PostalCode = validators.SanitizeString(in.Shipping.PostalCode, 20)
	in.Shipping.Country = validators.SanitizeString(in.Shipping.Country, 80)
	in.CouponCode = validators.SanitizeString(in.CouponCode, 64)
}

// validateCreateAmounts rejects client totals that can never reconcile
// before the order service does any pricing work.
func validateCreateAmounts(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(ordersvc.CreateOrderInput)
	if !ok {
		return
	}
	if in.Subtotal.IsNegative() {
		sl.ReportError(in.Subtotal, "subtotal", "Subtotal", "gte", "0")
	}
	if in.Total.IsNegative() {
		sl.ReportError(in.Total, "total", "Total", "gte", "0")
	}
	if in.Discount == nil {
		return
	}
	if in.Discount.IsNegative() {
		sl.ReportError(*in.Discount, "discount", "Discount", "gte", "0")
		return
	}
	if in.Discount.GreaterThan(in.Subtotal) {
		sl.ReportError(*in.Discount, "discount", "Discount", "lte", "subtotal")
	}
}
