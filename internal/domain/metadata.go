package domain

import "time"

// MetadataUpdate is one pending or executed N-of-M metadata change for an
// asset. Approvals from distinct signers accumulate against Threshold; the
// update executes automatically inside the approval that reaches it.
type MetadataUpdate struct {
	ID        string
	AssetID   string
	NewCID    string
	Threshold int
	Approvals int
	Executed  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MetadataApproval records one signer's approval of one update. A signer may
// approve a given update at most once.
type MetadataApproval struct {
	UpdateID string
	Signer   string
	At       time.Time
}
