package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/devmaster/food-delivery/internal/domain/coupon"
	"github.com/devmaster/food-delivery/internal/domain/order"
	"github.com/devmaster/food-delivery/internal/domain/pricing"
	"github.com/devmaster/food-delivery/internal/domain/product"
	"github.com/devmaster/food-delivery/internal/domain/restaurant"
)

// writeOrderError maps domain errors onto HTTP status codes. Anything not in
// the table is treated as an internal failure and logged.
func writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, restaurant.ErrNotFound):
		writeError(w, http.StatusNotFound, "restaurant_not_found", err.Error())
	case errors.Is(err, coupon.ErrCouponNotFound):
		writeError(w, http.StatusNotFound, "coupon_not_found", err.Error())
	case errors.Is(err, order.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "concurrent_update", "the order was modified concurrently, retry")
	case errors.Is(err, order.ErrAlreadyTerminal):
		writeError(w, http.StatusConflict, "order_terminal", err.Error())
	case errors.Is(err, coupon.ErrLimitReached):
		writeError(w, http.StatusConflict, "coupon_limit_reached", err.Error())
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, "empty_items", err.Error())
	case errors.Is(err, restaurant.ErrClosed), errors.Is(err, restaurant.ErrInactive):
		writeError(w, http.StatusUnprocessableEntity, "restaurant_unavailable", err.Error())
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusUnprocessableEntity, "product_not_found", err.Error())
	case errors.Is(err, pricing.ErrInvalidLatitude), errors.Is(err, pricing.ErrInvalidLongitude):
		writeError(w, http.StatusBadRequest, "invalid_location", err.Error())
	default:
		var (
			transition  *order.InvalidTransitionError
			quantity    *order.InvalidQuantityError
			unavailable *product.UnavailableError
			belowMin    *restaurant.BelowMinimumOrderError
		)
		switch {
		case errors.As(err, &transition):
			writeError(w, http.StatusUnprocessableEntity, "invalid_transition", transition.Error())
		case errors.As(err, &quantity):
			writeError(w, http.StatusUnprocessableEntity, "invalid_quantity", quantity.Error())
		case errors.As(err, &unavailable):
			writeError(w, http.StatusUnprocessableEntity, "product_unavailable", unavailable.Error())
		case errors.As(err, &belowMin):
			writeError(w, http.StatusUnprocessableEntity, "below_minimum_order", belowMin.Error())
		default:
			zctx.From(r.Context()).Error("request failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "")
		}
	}
}

// parseID parses a positive int64 path parameter, answering 400 on failure.
func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
