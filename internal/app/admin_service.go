package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bhargavryzer/Ownmali-sub000/internal/authz"
	"github.com/bhargavryzer/Ownmali-sub000/internal/clock"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

type AdminRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// CreateAsset returns domain.ErrAssetExists when the symbol is taken.
	CreateAsset(ctx context.Context, asset domain.Asset) error
	GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error)
	UpdateAsset(ctx context.Context, asset domain.Asset) error
	CreateEscrow(ctx context.Context, escrow domain.EscrowAccount) error
	UpsertComplianceEntry(ctx context.Context, entry domain.ComplianceEntry) error
	UpsertRoleGrant(ctx context.Context, grant domain.RoleGrant) error
	DeleteRoleGrant(ctx context.Context, account, role string) error
	GetWalletForUpdate(ctx context.Context, account string) (domain.Wallet, error)
	UpsertWallet(ctx context.Context, wallet domain.Wallet) error
	SetPaused(ctx context.Context, paused bool, at time.Time) error
}

// AdminService is the platform operations surface: asset provisioning,
// the circuit breaker, roles, the compliance registry, and wallet funding.
// Administration stays available while the platform is paused; the pause
// gate applies to settlement traffic, not to the operators running it.
type AdminService struct {
	repo   AdminRepository
	policy *authz.Policy
	clock  clock.Clock
}

func NewAdminService(repo AdminRepository, policy *authz.Policy, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:   repo,
		policy: policy,
		clock:  clk,
	}
}

type ProvisionAssetInput struct {
	Caller        string
	Name          string
	Symbol        string
	OwnerAccount  string
	MaxSupply     int64
	MinInvestment int64
	MaxInvestment int64
	MetadataCID   string
}

// ProvisionAsset creates the asset, its escrow pool, and the compliance
// approvals for the treasury and custody accounts in one transaction.
// Re-provisioning an existing symbol is rejected.
func (s *AdminService) ProvisionAsset(ctx context.Context, in ProvisionAssetInput) (domain.Asset, error) {
	if in.Name == "" {
		return domain.Asset{}, domain.ErrAssetNameRequired
	}
	if in.Symbol == "" {
		return domain.Asset{}, domain.ErrAssetSymbolRequired
	}
	if in.OwnerAccount == "" {
		return domain.Asset{}, domain.ErrInvalidAccount
	}
	if in.MaxSupply <= 0 {
		return domain.Asset{}, domain.ErrInvalidUnits
	}
	if err := validateLimits(in.MinInvestment, in.MaxInvestment); err != nil {
		return domain.Asset{}, err
	}

	now := s.clock.Now()
	var asset domain.Asset
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManagePlatform); err != nil {
			return err
		}
		asset = domain.Asset{
			ID:            newID(),
			Name:          in.Name,
			Symbol:        in.Symbol,
			OwnerAccount:  in.OwnerAccount,
			Active:        true,
			MaxSupply:     in.MaxSupply,
			MinInvestment: in.MinInvestment,
			MaxInvestment: in.MaxInvestment,
			MetadataCID:   in.MetadataCID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.CreateAsset(txCtx, asset); err != nil {
			return err
		}
		if err := s.repo.CreateEscrow(txCtx, domain.EscrowAccount{
			AssetID:        asset.ID,
			CustodyAccount: domain.CustodyAccount(asset.ID),
			Balance:        decimal.Zero,
			UpdatedAt:      now,
		}); err != nil {
			return err
		}
		for _, account := range []string{asset.OwnerAccount, domain.CustodyAccount(asset.ID)} {
			if err := s.repo.UpsertComplianceEntry(txCtx, domain.ComplianceEntry{
				AssetID:   asset.ID,
				Account:   account,
				Status:    domain.ComplianceApproved,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Asset{}, err
	}
	return asset, nil
}

type SetAssetActiveInput struct {
	Caller  string
	AssetID string
	Active  bool
}

func (s *AdminService) SetAssetActive(ctx context.Context, in SetAssetActiveInput) (domain.Asset, error) {
	if in.AssetID == "" {
		return domain.Asset{}, domain.ErrInvalidID
	}

	var asset domain.Asset
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManagePlatform); err != nil {
			return err
		}
		var err error
		asset, err = s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		asset.Active = in.Active
		asset.UpdatedAt = s.clock.Now()
		return s.repo.UpdateAsset(txCtx, asset)
	})
	if err != nil {
		return domain.Asset{}, err
	}
	return asset, nil
}

type SetInvestmentLimitsInput struct {
	Caller        string
	AssetID       string
	MinInvestment int64
	MaxInvestment int64
}

func (s *AdminService) SetInvestmentLimits(ctx context.Context, in SetInvestmentLimitsInput) (domain.Asset, error) {
	if in.AssetID == "" {
		return domain.Asset{}, domain.ErrInvalidID
	}
	if err := validateLimits(in.MinInvestment, in.MaxInvestment); err != nil {
		return domain.Asset{}, err
	}

	var asset domain.Asset
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManagePlatform); err != nil {
			return err
		}
		var err error
		asset, err = s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		asset.MinInvestment = in.MinInvestment
		asset.MaxInvestment = in.MaxInvestment
		asset.UpdatedAt = s.clock.Now()
		return s.repo.UpdateAsset(txCtx, asset)
	})
	if err != nil {
		return domain.Asset{}, err
	}
	return asset, nil
}

type SetPausedInput struct {
	Caller string
	Paused bool
}

// SetPaused flips the global circuit breaker. Setting the current state
// again is a no-op, not an error.
func (s *AdminService) SetPaused(ctx context.Context, in SetPausedInput) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManagePlatform); err != nil {
			return err
		}
		return s.repo.SetPaused(txCtx, in.Paused, s.clock.Now())
	})
}

type RoleInput struct {
	Caller  string
	Account string
	Role    string
}

func (s *AdminService) GrantRole(ctx context.Context, in RoleInput) error {
	if in.Account == "" {
		return domain.ErrInvalidAccount
	}
	if !authz.Role(in.Role).Valid() {
		return domain.ErrInvalidRole
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManagePlatform); err != nil {
			return err
		}
		return s.repo.UpsertRoleGrant(txCtx, domain.RoleGrant{
			Account:   in.Account,
			Role:      in.Role,
			GrantedAt: s.clock.Now(),
		})
	})
}

func (s *AdminService) RevokeRole(ctx context.Context, in RoleInput) error {
	if in.Account == "" {
		return domain.ErrInvalidAccount
	}
	if !authz.Role(in.Role).Valid() {
		return domain.ErrInvalidRole
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManagePlatform); err != nil {
			return err
		}
		return s.repo.DeleteRoleGrant(txCtx, in.Account, in.Role)
	})
}

type SetComplianceInput struct {
	Caller   string
	AssetID  string
	Account  string
	Approved bool
}

// SetCompliance approves or revokes an account in the asset's registry.
// The asset row lock serializes registry changes against in-flight
// settlements, so a gate decision never races a registry write.
func (s *AdminService) SetCompliance(ctx context.Context, in SetComplianceInput) (domain.ComplianceEntry, error) {
	if in.AssetID == "" {
		return domain.ComplianceEntry{}, domain.ErrInvalidID
	}
	if in.Account == "" {
		return domain.ComplianceEntry{}, domain.ErrInvalidAccount
	}

	var entry domain.ComplianceEntry
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManagePlatform); err != nil {
			return err
		}
		if _, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID); err != nil {
			return err
		}
		status := domain.ComplianceRevoked
		if in.Approved {
			status = domain.ComplianceApproved
		}
		entry = domain.ComplianceEntry{
			AssetID:   in.AssetID,
			Account:   in.Account,
			Status:    status,
			UpdatedAt: s.clock.Now(),
		}
		return s.repo.UpsertComplianceEntry(txCtx, entry)
	})
	if err != nil {
		return domain.ComplianceEntry{}, err
	}
	return entry, nil
}

type CreditWalletInput struct {
	Caller  string
	Account string
	Amount  decimal.Decimal
}

// CreditWallet is the platform cash-in path: it adds settlement funds to
// an account's wallet.
func (s *AdminService) CreditWallet(ctx context.Context, in CreditWalletInput) (domain.Wallet, error) {
	if in.Account == "" {
		return domain.Wallet{}, domain.ErrInvalidAccount
	}
	if !in.Amount.IsPositive() {
		return domain.Wallet{}, domain.ErrInvalidAmount
	}

	var wallet domain.Wallet
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapManagePlatform); err != nil {
			return err
		}
		var err error
		wallet, err = s.repo.GetWalletForUpdate(txCtx, in.Account)
		if err != nil {
			return err
		}
		wallet.Balance = wallet.Balance.Add(in.Amount)
		wallet.UpdatedAt = s.clock.Now()
		return s.repo.UpsertWallet(txCtx, wallet)
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	return wallet, nil
}

// Bootstrap grants the admin role directly, bypassing the policy. Only the
// startup path uses it, before any admin exists.
func (s *AdminService) Bootstrap(ctx context.Context, account string) error {
	if account == "" {
		return domain.ErrInvalidAccount
	}
	return s.repo.UpsertRoleGrant(ctx, domain.RoleGrant{
		Account:   account,
		Role:      string(authz.RoleAdmin),
		GrantedAt: s.clock.Now(),
	})
}

func validateLimits(minUnits, maxUnits int64) error {
	if minUnits < 0 || maxUnits < 0 {
		return domain.ErrInvalidLimits
	}
	if maxUnits > 0 && minUnits > maxUnits {
		return domain.ErrInvalidLimits
	}
	return nil
}
