package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/devmaster/food-delivery/internal/domain/coupon"
	"github.com/devmaster/food-delivery/internal/domain/order"
	"github.com/devmaster/food-delivery/internal/domain/pricing"
	"github.com/devmaster/food-delivery/internal/domain/product"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Field names follow the production wire contract, which predates this
// service and is consumed by Portuguese-language clients.

type createOrderRequest struct {
	RestaurantID int64              `json:"restauranteId"`
	Delivery     geoPointDTO        `json:"enderecoEntrega"`
	Items        []orderItemRequest `json:"itens"`
	CouponCode   string             `json:"codigoCupom,omitempty"`
	Notes        string             `json:"observacoes,omitempty"`
}

type orderItemRequest struct {
	ProductID int64   `json:"produtoId"`
	Quantity  int     `json:"quantidade"`
	OptionIDs []int64 `json:"opcoes,omitempty"`
}

type geoPointDTO struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Actor  string `json:"responsavel,omitempty"`
	Note   string `json:"observacao,omitempty"`
}

type updatePaymentRequest struct {
	Status string `json:"statusPagamento"`
}

type cancelOrderRequest struct {
	Reason string `json:"motivoCancelamento"`
	Actor  string `json:"responsavel,omitempty"`
}

type validateCouponRequest struct {
	Code     string          `json:"codigoCupom"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type quoteRequest struct {
	RestaurantID int64       `json:"restauranteId"`
	Delivery     geoPointDTO `json:"enderecoEntrega"`
}

type orderResponse struct {
	ID                 string                 `json:"id"`
	Number             string                 `json:"numero"`
	RestaurantID       int64                  `json:"restauranteId"`
	Status             string                 `json:"status"`
	StatusDescription  string                 `json:"statusDescricao"`
	PaymentStatus      string                 `json:"statusPagamento"`
	PaymentDescription string                 `json:"statusPagamentoDescricao"`
	Items              []orderItemResponse    `json:"itens"`
	Subtotal           decimal.Decimal        `json:"subtotal"`
	DeliveryFee        decimal.Decimal        `json:"taxaEntrega"`
	Discount           decimal.Decimal        `json:"desconto"`
	Total              decimal.Decimal        `json:"total"`
	CouponCode         string                 `json:"codigoCupom,omitempty"`
	DistanceKm         decimal.Decimal        `json:"distanciaKm"`
	ETAMinutes         int                    `json:"tempoEstimadoMinutos"`
	Notes              string                 `json:"observacoes,omitempty"`
	CancellationReason string                 `json:"motivoCancelamento,omitempty"`
	CreatedAt          time.Time              `json:"criadoEm"`
	ConfirmedAt        *time.Time             `json:"confirmadoEm,omitempty"`
	PreparingAt        *time.Time             `json:"preparandoEm,omitempty"`
	ReadyAt            *time.Time             `json:"prontoEm,omitempty"`
	DispatchedAt       *time.Time             `json:"despachadoEm,omitempty"`
	DeliveredAt        *time.Time             `json:"entregueEm,omitempty"`
	CanceledAt         *time.Time             `json:"canceladoEm,omitempty"`
	EstimatedDelivery  time.Time              `json:"previsaoEntrega"`
	History            []historyEntryResponse `json:"historico,omitempty"`
	CouponRejection    *couponResultResponse  `json:"avisoCupom,omitempty"`
}

type orderItemResponse struct {
	ProductID int64               `json:"produtoId"`
	Name      string              `json:"nome"`
	Quantity  int                 `json:"quantidade"`
	UnitPrice decimal.Decimal     `json:"precoUnitario"`
	Options   []itemOptionPayload `json:"opcoes,omitempty"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
}

type itemOptionPayload struct {
	OptionID        int64           `json:"opcaoId"`
	Name            string          `json:"nome"`
	AdditionalPrice decimal.Decimal `json:"precoAdicional"`
}

type historyEntryResponse struct {
	Status            string    `json:"status"`
	StatusDescription string    `json:"statusDescricao"`
	Actor             string    `json:"responsavel,omitempty"`
	Note              string    `json:"observacao,omitempty"`
	CreatedAt         time.Time `json:"criadoEm"`
}

type couponResultResponse struct {
	Valid      bool             `json:"valido"`
	Message    string           `json:"mensagem,omitempty"`
	Discount   *decimal.Decimal `json:"descontoCalculado,omitempty"`
	FinalTotal *decimal.Decimal `json:"valorFinal,omitempty"`
}

type quoteResponse struct {
	DistanceKm  decimal.Decimal `json:"distanciaKm"`
	ETAMinutes  int             `json:"tempoEstimadoMinutos"`
	DeliveryFee decimal.Decimal `json:"taxaEntrega"`
}

type productResponse struct {
	ID          int64            `json:"id"`
	Name        string           `json:"nome"`
	Description string           `json:"descricao,omitempty"`
	Price       decimal.Decimal  `json:"preco"`
	Category    string           `json:"categoria,omitempty"`
	Available   bool             `json:"disponivel"`
	Options     []optionResponse `json:"opcoes,omitempty"`
}

type optionResponse struct {
	ID              int64           `json:"id"`
	Name            string          `json:"nome"`
	AdditionalPrice decimal.Decimal `json:"precoAdicional"`
	Available       bool            `json:"disponivel"`
}

func mapOrder(o *order.Order, rejection *coupon.ValidationResult, withHistory bool) orderResponse {
	resp := orderResponse{
		ID:                 o.ID,
		Number:             o.Number,
		RestaurantID:       o.RestaurantID,
		Status:             string(o.Status),
		StatusDescription:  o.Status.Description(),
		PaymentStatus:      string(o.PaymentStatus),
		PaymentDescription: o.PaymentStatus.Description(),
		Items:              mapItems(o.Items),
		Subtotal:           o.Subtotal,
		DeliveryFee:        o.DeliveryFee,
		Discount:           o.Discount,
		Total:              o.Total,
		CouponCode:         o.CouponCode,
		DistanceKm:         o.DistanceKm,
		ETAMinutes:         o.ETAMinutes,
		Notes:              o.Notes,
		CancellationReason: o.CancellationReason,
		CreatedAt:          o.CreatedAt,
		ConfirmedAt:        o.ConfirmedAt,
		PreparingAt:        o.PreparingAt,
		ReadyAt:            o.ReadyAt,
		DispatchedAt:       o.DispatchedAt,
		DeliveredAt:        o.DeliveredAt,
		CanceledAt:         o.CanceledAt,
		EstimatedDelivery:  o.EstimatedDelivery,
	}
	if withHistory {
		resp.History = mapHistory(o.History)
	}
	if rejection != nil {
		resp.CouponRejection = mapCouponResult(*rejection)
	}
	return resp
}

func mapItems(items []order.Item) []orderItemResponse {
	out := make([]orderItemResponse, len(items))
	for i, item := range items {
		opts := make([]itemOptionPayload, len(item.Options))
		for j, opt := range item.Options {
			opts[j] = itemOptionPayload{
				OptionID:        opt.OptionID,
				Name:            opt.Name,
				AdditionalPrice: opt.AdditionalPrice,
			}
		}
		out[i] = orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Options:   opts,
			Subtotal:  item.Subtotal,
		}
	}
	return out
}

func mapHistory(entries []order.HistoryEntry) []historyEntryResponse {
	out := make([]historyEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = historyEntryResponse{
			Status:            string(e.Status),
			StatusDescription: e.Status.Description(),
			Actor:             e.Actor,
			Note:              e.Note,
			CreatedAt:         e.CreatedAt,
		}
	}
	return out
}

func mapCouponResult(res coupon.ValidationResult) *couponResultResponse {
	out := &couponResultResponse{
		Valid:   res.Valid,
		Message: res.Message,
	}
	if res.Valid {
		out.Discount = &res.Discount
		out.FinalTotal = &res.FinalTotal
	}
	return out
}

func mapQuote(q pricing.Quote) quoteResponse {
	return quoteResponse{
		DistanceKm:  q.DistanceKm,
		ETAMinutes:  q.ETAMinutes,
		DeliveryFee: q.Fee,
	}
}

func mapProducts(products []product.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i, p := range products {
		opts := make([]optionResponse, len(p.Options))
		for j, opt := range p.Options {
			opts[j] = optionResponse{
				ID:              opt.ID,
				Name:            opt.Name,
				AdditionalPrice: opt.AdditionalPrice,
				Available:       opt.Available,
			}
		}
		out[i] = productResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Category:    p.Category,
			Available:   p.Available,
			Options:     opts,
		}
	}
	return out
}
