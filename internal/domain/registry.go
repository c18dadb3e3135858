package domain

import "time"

type ComplianceStatus string

const (
	ComplianceApproved ComplianceStatus = "approved"
	ComplianceRevoked  ComplianceStatus = "revoked"
)

// ComplianceEntry is the registry record gating an account's participation
// in one asset. Revocation keeps the row so the audit trail survives.
type ComplianceEntry struct {
	AssetID   string
	Account   string
	Status    ComplianceStatus
	UpdatedAt time.Time
}

// RoleGrant assigns a named role to an account. Role values are owned by
// the authorization policy; storage treats them as opaque strings.
type RoleGrant struct {
	Account   string
	Role      string
	GrantedAt time.Time
}
