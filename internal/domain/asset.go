package domain

import "time"

// Asset is one provisioned real-world asset: token configuration plus the
// engine state attached to it. Supply is denominated in whole units.
type Asset struct {
	ID            string
	Name          string
	Symbol        string
	OwnerAccount  string
	Active        bool
	MaxSupply     int64
	TotalSupply   int64
	MinInvestment int64
	MaxInvestment int64
	MetadataCID   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WithinInvestmentBounds reports whether a unit amount satisfies the asset's
// configured per-order investment bounds. A zero MaxInvestment means no upper
// bound is configured.
func (a Asset) WithinInvestmentBounds(units int64) bool {
	if units < a.MinInvestment {
		return false
	}
	if a.MaxInvestment > 0 && units > a.MaxInvestment {
		return false
	}
	return true
}
