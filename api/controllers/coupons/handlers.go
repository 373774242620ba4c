package coupons

import (
	"net/http"

	"github.com/angelmondragon/storefront-core/api/responses"
	"github.com/angelmondragon/storefront-core/api/validators"
	couponsvc "github.com/angelmondragon/storefront-core/internal/coupons"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
)

// Validate checks a coupon code against the caller's cart. Rejections are
// answered with valid=false: 404 when the code is unknown, 400 otherwise.
func Validate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		var payload ValidateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		validation, err := svc.Validate(r.Context(), payload.Code, payload.lines(), payload.Subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := validation.Result
		if !result.Valid {
			status := http.StatusBadRequest
			if result.Reason == couponsvc.ReasonNotFound {
				status = http.StatusNotFound
			}
			responses.WriteSuccessStatus(w, status, ValidateCouponResponse{
				Valid:   false,
				Reason:  result.Reason,
				Message: result.Reason.Message(),
			})
			return
		}

		dto := couponsvc.ToDTO(*validation.Coupon)
		discount := result.Discount
		responses.WriteSuccess(w, ValidateCouponResponse{
			Valid:    true,
			Coupon:   &dto,
			Discount: &discount,
		})
	}
}

// Active lists the coupons a shopper can currently use.
func Active(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		list, err := svc.Active(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []couponsvc.CouponDTO{}
		}
		responses.WriteSuccess(w, ActiveCouponsResponse{Coupons: list})
	}
}
