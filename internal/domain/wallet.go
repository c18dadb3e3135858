package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is one account's settlement-currency balance on the platform.
type Wallet struct {
	Account   string
	Balance   decimal.Decimal
	UpdatedAt time.Time
}
