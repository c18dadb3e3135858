package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bhargavryzer/Ownmali-sub000/internal/app"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

// OrderAPI is the minimal interface needed for the order endpoints.
type OrderAPI interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	CancelOrder(ctx context.Context, in app.CancelOrderInput) (domain.Order, error)
	FinalizeOrder(ctx context.Context, in app.FinalizeOrderInput) (domain.Order, error)
	RefundOrder(ctx context.Context, in app.RefundOrderInput) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrdersByInvestor(ctx context.Context, investor string) ([]domain.Order, error)
}

type createOrderRequest struct {
	AssetID  string          `json:"asset_id"`
	Investor string          `json:"investor,omitempty"`
	Side     string          `json:"side"`
	Units    int64           `json:"units"`
	Price    decimal.Decimal `json:"price"`
}

type orderResponse struct {
	ID                string          `json:"id"`
	AssetID           string          `json:"asset_id"`
	Investor          string          `json:"investor"`
	Side              string          `json:"side"`
	Units             int64           `json:"units"`
	Price             decimal.Decimal `json:"price"`
	Status            string          `json:"status"`
	CancelRequestedAt *time.Time      `json:"cancel_requested_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func toOrderResponse(order domain.Order) orderResponse {
	return orderResponse{
		ID:                order.ID,
		AssetID:           order.AssetID,
		Investor:          order.Investor,
		Side:              string(order.Side),
		Units:             order.Units,
		Price:             order.Price,
		Status:            string(order.Status),
		CancelRequestedAt: order.CancelRequestedAt,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}

// HandleCreateOrder returns an HTTP handler for opening orders.
func HandleCreateOrder(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		order, err := svc.CreateOrder(r.Context(), app.CreateOrderInput{
			Caller:   CallerFrom(r.Context()),
			AssetID:  req.AssetID,
			Investor: req.Investor,
			Side:     domain.OrderSide(req.Side),
			Units:    req.Units,
			Price:    req.Price,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toOrderResponse(order))
	}
}

// HandleCancelOrder returns an HTTP handler for investor cancellation.
func HandleCancelOrder(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.CancelOrder(r.Context(), app.CancelOrderInput{
			Caller:  CallerFrom(r.Context()),
			OrderID: chi.URLParam(r, "orderID"),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(order))
	}
}

// HandleFinalizeOrder returns an HTTP handler for settling orders.
func HandleFinalizeOrder(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.FinalizeOrder(r.Context(), app.FinalizeOrderInput{
			Caller:  CallerFrom(r.Context()),
			OrderID: chi.URLParam(r, "orderID"),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(order))
	}
}

// HandleRefundOrder returns an HTTP handler for refunding cancelled orders.
func HandleRefundOrder(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.RefundOrder(r.Context(), app.RefundOrderInput{
			Caller:  CallerFrom(r.Context()),
			OrderID: chi.URLParam(r, "orderID"),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(order))
	}
}

// HandleGetOrder returns an HTTP handler for reading one order.
func HandleGetOrder(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(order))
	}
}

// HandleListOrders returns an HTTP handler listing an investor's orders,
// newest first. Without an investor query parameter it lists the caller's.
func HandleListOrders(svc OrderAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		investor := r.URL.Query().Get("investor")
		if investor == "" {
			investor = CallerFrom(r.Context())
		}

		orders, err := svc.ListOrdersByInvestor(r.Context(), investor)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]orderResponse, 0, len(orders))
		for _, order := range orders {
			resp = append(resp, toOrderResponse(order))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
