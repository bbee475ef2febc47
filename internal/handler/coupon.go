package handler

import (
	"encoding/json"
	"net/http"

	"github.com/devmaster/food-delivery/internal/domain/pricing"
)

// ValidateCoupon previews a coupon against a subtotal without consuming a
// usage slot. Business rejections come back with 200 and valido=false.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code_required", "codigoCupom is required")
		return
	}
	if req.Subtotal.IsNegative() {
		writeError(w, http.StatusBadRequest, "invalid_subtotal", "subtotal must not be negative")
		return
	}

	result, err := h.orders.ValidateCoupon(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCouponResult(result))
}

// QuoteDelivery estimates distance, fee and delivery time for a restaurant
// and drop-off point.
func (h *Handler) QuoteDelivery(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	dest, err := pricing.NewGeoPoint(req.Delivery.Lat, req.Delivery.Lon)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_location", err.Error())
		return
	}

	quote, err := h.orders.Quote(r.Context(), req.RestaurantID, dest)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapQuote(quote))
}
