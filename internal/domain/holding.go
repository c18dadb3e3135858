package domain

import "time"

// Holding is one account's position in one asset. LockedUntil, when set,
// blocks the account from being the source of any outbound movement until
// the instant passes; it layers on top of compliance, never replaces it.
type Holding struct {
	AssetID     string
	Account     string
	Balance     int64
	LockedUntil *time.Time
	UpdatedAt   time.Time
}

// Locked reports whether the holding is lock-restricted at the given instant.
func (h Holding) Locked(now time.Time) bool {
	return h.LockedUntil != nil && now.Before(*h.LockedUntil)
}
