// Package handler exposes the HTTP API: order placement and lifecycle,
// coupon validation and delivery quotes.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devmaster/food-delivery/internal/domain/order"
	"github.com/devmaster/food-delivery/internal/domain/product"
)

// Handler serves the public API, delegating business logic to the order
// service.
type Handler struct {
	orders   *order.Service
	products product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, products product.Repository) *Handler {
	return &Handler{
		orders:   orders,
		products: products,
	}
}

// Routes mounts every API endpoint on a chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrder)
			r.Get("/{id}/history", h.GetOrderHistory)
			r.Patch("/{id}/status", h.UpdateOrderStatus)
			r.Patch("/{id}/payment", h.UpdatePaymentStatus)
			r.Post("/{id}/cancel", h.CancelOrder)
		})
		r.Get("/restaurants/{id}/products", h.ListProducts)
		r.Post("/coupons/validate", h.ValidateCoupon)
		r.Post("/delivery/quote", h.QuoteDelivery)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
