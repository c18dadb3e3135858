package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustodyAccount derives the synthetic ledger account that holds sell-side
// asset units while their order is pending. The name is deterministic so
// services can address the custody side without loading the escrow row.
func CustodyAccount(assetID string) string {
	return "escrow:" + assetID
}

// EscrowAccount is the custodial settlement-currency pool for one asset.
// CustodyAccount is the synthetic ledger account that holds sell-side asset
// units while their order is pending.
type EscrowAccount struct {
	AssetID        string
	CustodyAccount string
	Balance        decimal.Decimal
	UpdatedAt      time.Time
}

type EscrowMovementKind string

const (
	EscrowMovementDeposit   EscrowMovementKind = "deposit"
	EscrowMovementRelease   EscrowMovementKind = "release"
	EscrowMovementRefund    EscrowMovementKind = "refund"
	EscrowMovementEmergency EscrowMovementKind = "emergency"
)

// EscrowMovement is one append-only audit record of value entering or
// leaving an escrow pool. Counterparty is the wallet on the other side.
type EscrowMovement struct {
	ID           string
	AssetID      string
	Kind         EscrowMovementKind
	Counterparty string
	Amount       decimal.Decimal
	OrderID      string
	At           time.Time
}
