package app

import (
	"context"
	"time"

	"github.com/bhargavryzer/Ownmali-sub000/internal/authz"
	"github.com/bhargavryzer/Ownmali-sub000/internal/clock"
	"github.com/bhargavryzer/Ownmali-sub000/internal/compliance"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

type TokenRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	IsPaused(ctx context.Context) (bool, error)
	GetAsset(ctx context.Context, assetID string) (domain.Asset, error)
	GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error)
	UpdateAsset(ctx context.Context, asset domain.Asset) error
	// GetHoldingForUpdate returns a zero-balance holding when the account
	// has no row for the asset yet; absence is not an error.
	GetHoldingForUpdate(ctx context.Context, assetID, account string) (domain.Holding, error)
	GetHolding(ctx context.Context, assetID, account string) (domain.Holding, error)
	UpsertHolding(ctx context.Context, holding domain.Holding) error
	CreateMetadataUpdate(ctx context.Context, update domain.MetadataUpdate) error
	GetMetadataUpdateForUpdate(ctx context.Context, updateID string) (domain.MetadataUpdate, error)
	UpdateMetadataUpdate(ctx context.Context, update domain.MetadataUpdate) error
	// AddMetadataApproval returns domain.ErrAlreadyApproved when the signer
	// has already approved the update.
	AddMetadataApproval(ctx context.Context, approval domain.MetadataApproval) error
}

// TokenService owns the asset unit ledger. Every balance change, from any
// caller, goes through the single move step so compliance, lock periods,
// holder bounds, and the supply cap cannot be bypassed.
type TokenService struct {
	repo              TokenRepository
	gate              compliance.Gate
	policy            *authz.Policy
	clock             clock.Clock
	maxBatch          int
	metadataThreshold int
}

func NewTokenService(repo TokenRepository, gate compliance.Gate, policy *authz.Policy, clk clock.Clock, maxBatch, metadataThreshold int) *TokenService {
	return &TokenService{
		repo:              repo,
		gate:              gate,
		policy:            policy,
		clock:             clk,
		maxBatch:          maxBatch,
		metadataThreshold: metadataThreshold,
	}
}

type TransferInput struct {
	Caller  string
	AssetID string
	To      string
	Units   int64
}

// Transfer moves units from the caller to another account.
func (s *TokenService) Transfer(ctx context.Context, in TransferInput) (domain.Holding, error) {
	if in.AssetID == "" {
		return domain.Holding{}, domain.ErrInvalidID
	}
	if in.Caller == "" || in.To == "" {
		return domain.Holding{}, domain.ErrInvalidAccount
	}
	if in.Units <= 0 {
		return domain.Holding{}, domain.ErrInvalidUnits
	}

	var remaining domain.Holding
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		asset, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		if !asset.Active {
			return domain.ErrAssetInactive
		}
		if err := s.move(txCtx, &asset, in.Caller, in.To, in.Units); err != nil {
			return err
		}
		remaining, err = s.repo.GetHolding(txCtx, in.AssetID, in.Caller)
		return err
	})
	if err != nil {
		return domain.Holding{}, err
	}
	return remaining, nil
}

type ForcedTransferInput struct {
	Caller  string
	AssetID string
	From    string
	To      string
	Units   int64
}

// ForcedTransfer moves units between two accounts on admin authority. Force
// overrides holder consent only; the compliance gate and lock periods still
// apply, so rescuing a revoked or locked position means fixing the registry
// or the lock first.
func (s *TokenService) ForcedTransfer(ctx context.Context, in ForcedTransferInput) (domain.Holding, error) {
	if in.AssetID == "" {
		return domain.Holding{}, domain.ErrInvalidID
	}
	if in.From == "" || in.To == "" {
		return domain.Holding{}, domain.ErrInvalidAccount
	}
	if in.Units <= 0 {
		return domain.Holding{}, domain.ErrInvalidUnits
	}

	var moved domain.Holding
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManageTokens); err != nil {
			return err
		}
		asset, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		if err := s.move(txCtx, &asset, in.From, in.To, in.Units); err != nil {
			return err
		}
		moved, err = s.repo.GetHolding(txCtx, in.AssetID, in.To)
		return err
	})
	if err != nil {
		return domain.Holding{}, err
	}
	return moved, nil
}

type MintInput struct {
	Caller  string
	AssetID string
	To      string
	Units   int64
}

// Mint creates new units for an account, bounded by the asset's max supply.
func (s *TokenService) Mint(ctx context.Context, in MintInput) (domain.Holding, error) {
	if in.AssetID == "" {
		return domain.Holding{}, domain.ErrInvalidID
	}
	if in.To == "" {
		return domain.Holding{}, domain.ErrInvalidAccount
	}
	if in.Units <= 0 {
		return domain.Holding{}, domain.ErrInvalidUnits
	}

	var minted domain.Holding
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManageTokens); err != nil {
			return err
		}
		asset, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		if err := s.move(txCtx, &asset, "", in.To, in.Units); err != nil {
			return err
		}
		minted, err = s.repo.GetHolding(txCtx, in.AssetID, in.To)
		return err
	})
	if err != nil {
		return domain.Holding{}, err
	}
	return minted, nil
}

type PremintInput struct {
	Caller  string
	AssetID string
	Units   int64
}

// Premint mints units into the asset owner's treasury, typically before the
// sale opens.
func (s *TokenService) Premint(ctx context.Context, in PremintInput) (domain.Holding, error) {
	if in.AssetID == "" {
		return domain.Holding{}, domain.ErrInvalidID
	}
	if in.Units <= 0 {
		return domain.Holding{}, domain.ErrInvalidUnits
	}

	var minted domain.Holding
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManageTokens); err != nil {
			return err
		}
		asset, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		if err := s.move(txCtx, &asset, "", asset.OwnerAccount, in.Units); err != nil {
			return err
		}
		minted, err = s.repo.GetHolding(txCtx, in.AssetID, asset.OwnerAccount)
		return err
	})
	if err != nil {
		return domain.Holding{}, err
	}
	return minted, nil
}

type BurnInput struct {
	Caller  string
	AssetID string
	From    string
	Units   int64
}

// Burn destroys units held by an account and shrinks total supply.
func (s *TokenService) Burn(ctx context.Context, in BurnInput) (domain.Holding, error) {
	if in.AssetID == "" {
		return domain.Holding{}, domain.ErrInvalidID
	}
	if in.From == "" {
		return domain.Holding{}, domain.ErrInvalidAccount
	}
	if in.Units <= 0 {
		return domain.Holding{}, domain.ErrInvalidUnits
	}

	var remaining domain.Holding
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManageTokens); err != nil {
			return err
		}
		asset, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		if err := s.move(txCtx, &asset, in.From, "", in.Units); err != nil {
			return err
		}
		remaining, err = s.repo.GetHolding(txCtx, in.AssetID, in.From)
		return err
	})
	if err != nil {
		return domain.Holding{}, err
	}
	return remaining, nil
}

type BatchMintInput struct {
	Caller   string
	AssetID  string
	Accounts []string
	Units    []int64
}

// BatchMint mints to several accounts in one transaction; any rejected
// element rolls back the whole batch.
func (s *TokenService) BatchMint(ctx context.Context, in BatchMintInput) error {
	if err := s.validateBatch(in.AssetID, in.Accounts, in.Units); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManageTokens); err != nil {
			return err
		}
		asset, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		for i, account := range in.Accounts {
			if err := s.move(txCtx, &asset, "", account, in.Units[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

type BatchBurnInput struct {
	Caller   string
	AssetID  string
	Accounts []string
	Units    []int64
}

// BatchBurn burns from several accounts in one transaction; any rejected
// element rolls back the whole batch.
func (s *TokenService) BatchBurn(ctx context.Context, in BatchBurnInput) error {
	if err := s.validateBatch(in.AssetID, in.Accounts, in.Units); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManageTokens); err != nil {
			return err
		}
		asset, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		for i, account := range in.Accounts {
			if err := s.move(txCtx, &asset, account, "", in.Units[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *TokenService) validateBatch(assetID string, accounts []string, units []int64) error {
	if assetID == "" {
		return domain.ErrInvalidID
	}
	if len(accounts) != len(units) {
		return domain.ErrBatchLengthMismatch
	}
	if len(accounts) == 0 {
		return domain.ErrEmptyBatch
	}
	if len(accounts) > s.maxBatch {
		return domain.ErrBatchTooLarge
	}
	for i := range accounts {
		if accounts[i] == "" {
			return domain.ErrInvalidAccount
		}
		if units[i] <= 0 {
			return domain.ErrInvalidUnits
		}
	}
	return nil
}

type SetLockInput struct {
	Caller  string
	AssetID string
	Account string
	Until   time.Time
}

// SetLockUntil blocks outbound movements from an account's holding until
// the given instant. A zero Until clears the lock.
func (s *TokenService) SetLockUntil(ctx context.Context, in SetLockInput) (domain.Holding, error) {
	if in.AssetID == "" {
		return domain.Holding{}, domain.ErrInvalidID
	}
	if in.Account == "" {
		return domain.Holding{}, domain.ErrInvalidAccount
	}

	var locked domain.Holding
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManageTokens); err != nil {
			return err
		}
		if _, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID); err != nil {
			return err
		}
		holding, err := s.repo.GetHoldingForUpdate(txCtx, in.AssetID, in.Account)
		if err != nil {
			return err
		}
		if in.Until.IsZero() {
			holding.LockedUntil = nil
		} else {
			until := in.Until.UTC()
			holding.LockedUntil = &until
		}
		holding.UpdatedAt = s.clock.Now()
		if err := s.repo.UpsertHolding(txCtx, holding); err != nil {
			return err
		}
		locked = holding
		return nil
	})
	if err != nil {
		return domain.Holding{}, err
	}
	return locked, nil
}

// GetAsset reads one asset's configuration and supply.
func (s *TokenService) GetAsset(ctx context.Context, assetID string) (domain.Asset, error) {
	if assetID == "" {
		return domain.Asset{}, domain.ErrInvalidID
	}
	return s.repo.GetAsset(ctx, assetID)
}

// BalanceOf reads an account's holding for an asset. Accounts with no
// holding row read as zero balances.
func (s *TokenService) BalanceOf(ctx context.Context, assetID, account string) (domain.Holding, error) {
	if assetID == "" {
		return domain.Holding{}, domain.ErrInvalidID
	}
	if account == "" {
		return domain.Holding{}, domain.ErrInvalidAccount
	}
	if _, err := s.repo.GetAsset(ctx, assetID); err != nil {
		return domain.Holding{}, err
	}
	return s.repo.GetHolding(ctx, assetID, account)
}

type ProposeMetadataInput struct {
	Caller  string
	AssetID string
	NewCID  string
}

// ProposeMetadataUpdate opens an N-of-M metadata change. The proposer's
// own approval is recorded immediately, so a threshold of one executes on
// the spot.
func (s *TokenService) ProposeMetadataUpdate(ctx context.Context, in ProposeMetadataInput) (domain.MetadataUpdate, error) {
	if in.AssetID == "" {
		return domain.MetadataUpdate{}, domain.ErrInvalidID
	}
	if in.NewCID == "" {
		return domain.MetadataUpdate{}, domain.ErrInvalidCID
	}

	var update domain.MetadataUpdate
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapSignMetadata); err != nil {
			return err
		}
		asset, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		update = domain.MetadataUpdate{
			ID:        newID(),
			AssetID:   in.AssetID,
			NewCID:    in.NewCID,
			Threshold: s.metadataThreshold,
			Approvals: 1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateMetadataUpdate(txCtx, update); err != nil {
			return err
		}
		if err := s.repo.AddMetadataApproval(txCtx, domain.MetadataApproval{
			UpdateID: update.ID,
			Signer:   in.Caller,
			At:       now,
		}); err != nil {
			return err
		}
		if update.Approvals >= update.Threshold {
			asset.MetadataCID = update.NewCID
			asset.UpdatedAt = now
			if err := s.repo.UpdateAsset(txCtx, asset); err != nil {
				return err
			}
			update.Executed = true
			if err := s.repo.UpdateMetadataUpdate(txCtx, update); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.MetadataUpdate{}, err
	}
	return update, nil
}

type ApproveMetadataInput struct {
	Caller   string
	UpdateID string
}

// ApproveMetadataUpdate records one signer's approval and executes the
// update in the same transaction the moment the threshold is reached.
func (s *TokenService) ApproveMetadataUpdate(ctx context.Context, in ApproveMetadataInput) (domain.MetadataUpdate, error) {
	if in.UpdateID == "" {
		return domain.MetadataUpdate{}, domain.ErrInvalidID
	}

	var update domain.MetadataUpdate
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapSignMetadata); err != nil {
			return err
		}
		var err error
		update, err = s.repo.GetMetadataUpdateForUpdate(txCtx, in.UpdateID)
		if err != nil {
			return err
		}
		if update.Executed {
			return domain.ErrUpdateExecuted
		}

		now := s.clock.Now()
		if err := s.repo.AddMetadataApproval(txCtx, domain.MetadataApproval{
			UpdateID: update.ID,
			Signer:   in.Caller,
			At:       now,
		}); err != nil {
			return err
		}
		update.Approvals++
		update.UpdatedAt = now
		if update.Approvals >= update.Threshold {
			asset, err := s.repo.GetAssetForUpdate(txCtx, update.AssetID)
			if err != nil {
				return err
			}
			asset.MetadataCID = update.NewCID
			asset.UpdatedAt = now
			if err := s.repo.UpdateAsset(txCtx, asset); err != nil {
				return err
			}
			update.Executed = true
		}
		return s.repo.UpdateMetadataUpdate(txCtx, update)
	})
	if err != nil {
		return domain.MetadataUpdate{}, err
	}
	return update, nil
}

func (s *TokenService) ensureRunning(ctx context.Context) error {
	paused, err := s.repo.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return domain.ErrSystemPaused
	}
	return nil
}

// move is the single balance-changing step for asset units. Every mint,
// burn, transfer, custody move, and settlement routes through it, in this
// check order: compliance gate, source lock and balance, holder bounds on
// the receiving side of transfers, supply cap on mints. Callers must hold
// the asset row lock and run inside a transaction; supply changes are
// persisted here.
func (s *TokenService) move(ctx context.Context, asset *domain.Asset, from, to string, units int64) error {
	if units <= 0 {
		return domain.ErrInvalidUnits
	}
	if from == "" && to == "" {
		return domain.ErrInvalidAccount
	}
	// Both legs read before either writes, so a self move would double
	// count the credit.
	if from == to {
		return domain.ErrInvalidAccount
	}
	ok, err := s.gate.CanTransfer(ctx, asset.ID, from, to, units)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrComplianceRejected
	}

	now := s.clock.Now()
	var source, target domain.Holding
	if from != "" {
		source, err = s.repo.GetHoldingForUpdate(ctx, asset.ID, from)
		if err != nil {
			return err
		}
		if source.Locked(now) {
			return domain.ErrTokensLocked
		}
		if source.Balance < units {
			return domain.ErrInsufficientBalance
		}
	}
	if to != "" {
		target, err = s.repo.GetHoldingForUpdate(ctx, asset.ID, to)
		if err != nil {
			return err
		}
		if from != "" && !boundsExempt(*asset, to) && !asset.WithinInvestmentBounds(target.Balance+units) {
			return domain.ErrHolderLimitExceeded
		}
	}

	switch {
	case from == "":
		if asset.TotalSupply+units > asset.MaxSupply {
			return domain.ErrMaxSupplyExceeded
		}
		asset.TotalSupply += units
	case to == "":
		asset.TotalSupply -= units
	}
	if from == "" || to == "" {
		asset.UpdatedAt = now
		if err := s.repo.UpdateAsset(ctx, *asset); err != nil {
			return err
		}
	}

	if from != "" {
		source.Balance -= units
		source.UpdatedAt = now
		if err := s.repo.UpsertHolding(ctx, source); err != nil {
			return err
		}
	}
	if to != "" {
		target.Balance += units
		target.UpdatedAt = now
		if err := s.repo.UpsertHolding(ctx, target); err != nil {
			return err
		}
	}
	return nil
}

// boundsExempt marks the accounts that settle both sides of every order;
// per-holder investment bounds never apply to them.
func boundsExempt(asset domain.Asset, account string) bool {
	return account == asset.OwnerAccount || account == domain.CustodyAccount(asset.ID)
}
