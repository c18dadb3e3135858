package domain

import "errors"

var (
	// Validation failures: malformed or out-of-range input.
	ErrInvalidAccount      = errors.New("account id required")
	ErrInvalidID           = errors.New("invalid id")
	ErrAssetNameRequired   = errors.New("asset name required")
	ErrAssetSymbolRequired = errors.New("asset symbol required")
	ErrInvalidUnits        = errors.New("units must be positive")
	ErrInvalidPrice        = errors.New("price must be positive")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidSide         = errors.New("invalid order side")
	ErrInvalidLimits       = errors.New("invalid investment limits")
	ErrInvalidThreshold    = errors.New("invalid approval threshold")
	ErrInvalidRole         = errors.New("unknown role")
	ErrInvalidCID          = errors.New("metadata cid required")
	ErrUnitsOutsideLimits  = errors.New("units outside the asset's investment bounds")
	ErrBatchLengthMismatch = errors.New("batch accounts and amounts differ in length")
	ErrEmptyBatch          = errors.New("batch is empty")

	// Missing records.
	ErrOrderNotFound  = errors.New("order not found")
	ErrAssetNotFound  = errors.New("asset not found")
	ErrEscrowNotFound = errors.New("escrow account not found")
	ErrUpdateNotFound = errors.New("metadata update not found")

	// Lifecycle and platform-state conflicts.
	ErrOrderNotPending        = errors.New("order is not pending")
	ErrOrderNotCancelled      = errors.New("order is not cancelled")
	ErrCancelAlreadyRequested = errors.New("cancellation already requested")
	ErrAssetInactive          = errors.New("asset is not active")
	ErrAssetExists            = errors.New("asset already provisioned")
	ErrSystemPaused           = errors.New("system is paused")
	ErrSystemNotPaused        = errors.New("system is not paused")
	ErrTokensLocked           = errors.New("tokens are locked")
	ErrUpdateExecuted         = errors.New("metadata update already executed")
	ErrAlreadyApproved        = errors.New("signer already approved this update")

	// Authorization failures.
	ErrNotAuthorized = errors.New("caller lacks required capability")
	ErrNotOrderOwner = errors.New("caller is not the order counterparty")

	// Compliance denials.
	ErrComplianceRejected  = errors.New("compliance gate rejected the movement")
	ErrHolderLimitExceeded = errors.New("resulting balance outside holder bounds")

	// Resource exhaustion.
	ErrInsufficientFunds   = errors.New("insufficient wallet balance")
	ErrInsufficientEscrow  = errors.New("insufficient escrow balance")
	ErrInsufficientBalance = errors.New("insufficient asset balance")
	ErrMaxSupplyExceeded   = errors.New("mint would exceed max supply")
	ErrBatchTooLarge       = errors.New("batch exceeds configured maximum")
)

// Kind classifies domain errors into the failure taxonomy the transport
// layer maps onto status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindState
	KindAuthorization
	KindCompliance
	KindResource
)

var errKinds = map[error]Kind{
	ErrInvalidAccount:      KindValidation,
	ErrInvalidID:           KindValidation,
	ErrAssetNameRequired:   KindValidation,
	ErrAssetSymbolRequired: KindValidation,
	ErrInvalidUnits:        KindValidation,
	ErrInvalidPrice:        KindValidation,
	ErrInvalidAmount:       KindValidation,
	ErrInvalidSide:         KindValidation,
	ErrInvalidLimits:       KindValidation,
	ErrInvalidThreshold:    KindValidation,
	ErrInvalidRole:         KindValidation,
	ErrInvalidCID:          KindValidation,
	ErrUnitsOutsideLimits:  KindValidation,
	ErrBatchLengthMismatch: KindValidation,
	ErrEmptyBatch:          KindValidation,

	ErrOrderNotFound:  KindNotFound,
	ErrAssetNotFound:  KindNotFound,
	ErrEscrowNotFound: KindNotFound,
	ErrUpdateNotFound: KindNotFound,

	ErrOrderNotPending:        KindState,
	ErrOrderNotCancelled:      KindState,
	ErrCancelAlreadyRequested: KindState,
	ErrAssetInactive:          KindState,
	ErrAssetExists:            KindState,
	ErrSystemPaused:           KindState,
	ErrSystemNotPaused:        KindState,
	ErrTokensLocked:           KindState,
	ErrUpdateExecuted:         KindState,
	ErrAlreadyApproved:        KindState,

	ErrNotAuthorized: KindAuthorization,
	ErrNotOrderOwner: KindAuthorization,

	ErrComplianceRejected:  KindCompliance,
	ErrHolderLimitExceeded: KindCompliance,

	ErrInsufficientFunds:   KindResource,
	ErrInsufficientEscrow:  KindResource,
	ErrInsufficientBalance: KindResource,
	ErrMaxSupplyExceeded:   KindResource,
	ErrBatchTooLarge:       KindResource,
}

// KindOf returns the taxonomy kind for a domain error, unwrapping as needed.
// Unknown errors classify as KindInternal.
func KindOf(err error) Kind {
	for target, kind := range errKinds {
		if errors.Is(err, target) {
			return kind
		}
	}
	return KindInternal
}
