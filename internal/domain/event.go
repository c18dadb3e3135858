package domain

import "time"

type OrderEventType string

const (
	OrderEventCreated   OrderEventType = "order_created"
	OrderEventCancelled OrderEventType = "order_cancelled"
	OrderEventFinalized OrderEventType = "order_finalized"
	OrderEventRefunded  OrderEventType = "order_refunded"
)

// OrderEvent is one append-only lifecycle notification. Payload carries the
// full order snapshot at emission time, JSON-encoded.
type OrderEvent struct {
	ID      string
	OrderID string
	Type    OrderEventType
	Payload []byte
	At      time.Time
}
