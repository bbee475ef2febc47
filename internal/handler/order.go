package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/devmaster/food-delivery/internal/domain/order"
	"github.com/devmaster/food-delivery/internal/domain/pricing"
)

// CreateOrder places a new order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	delivery, err := pricing.NewGeoPoint(req.Delivery.Lat, req.Delivery.Lon)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_location", err.Error())
		return
	}

	items := make([]order.CartItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			OptionIDs: item.OptionIDs,
		}
	}

	result, err := h.orders.Create(r.Context(), order.CreateRequest{
		RestaurantID:     req.RestaurantID,
		DeliveryLocation: delivery,
		Items:            items,
		CouponCode:       req.CouponCode,
		Notes:            req.Notes,
		Actor:            "customer",
	})
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("order placed",
		zap.String("order_id", result.Order.ID),
		zap.String("number", result.Order.Number),
		zap.String("total", result.Order.Total.String()),
	)

	writeJSON(w, http.StatusCreated, mapOrder(result.Order, result.CouponRejection, false))
}

// GetOrder returns a single order with its status history.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o, nil, true))
}

// GetOrderHistory returns the status history of an order, oldest first.
func (h *Handler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.orders.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapHistory(history))
}

// UpdateOrderStatus transitions an order to the requested status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	target := order.Status(req.Status)
	if !target.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_status", "unknown status: "+req.Status)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), target, req.Actor, req.Note)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o, nil, false))
}

// UpdatePaymentStatus transitions the payment state of an order.
func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	target := order.PaymentStatus(req.Status)
	if !target.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_payment_status", "unknown payment status: "+req.Status)
		return
	}

	o, err := h.orders.SetPaymentStatus(r.Context(), chi.URLParam(r, "id"), target)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o, nil, false))
}

// CancelOrder cancels an order with a reason.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason_required", "motivoCancelamento is required")
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = "customer"
	}

	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason, actor)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o, nil, false))
}

// ListProducts returns a restaurant's menu.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	products, err := h.products.List(r.Context(), restaurantID)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProducts(products))
}
