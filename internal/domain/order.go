package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Valid reports whether the side is one of the two known values.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFinalized OrderStatus = "finalized"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// CanTransition reports whether an order may move from one status to the
// next. The lifecycle is monotonic: pending -> {cancelled, finalized},
// cancelled -> refunded. Terminal statuses never transition again.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return to == OrderStatusCancelled || to == OrderStatusFinalized
	case OrderStatusCancelled:
		return to == OrderStatusRefunded
	default:
		return false
	}
}

// Order represents one buy or sell intent against a provisioned asset.
// Price is the total settlement amount, not a per-unit quote. Orders are
// never deleted; terminal statuses are retained for audit.
type Order struct {
	ID                string
	AssetID           string
	Investor          string
	Side              OrderSide
	Units             int64
	Price             decimal.Decimal
	Status            OrderStatus
	CreatedAt         time.Time
	CancelRequestedAt *time.Time
	UpdatedAt         time.Time
}
