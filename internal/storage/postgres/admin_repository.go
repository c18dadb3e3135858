package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *AdminRepository) CreateAsset(ctx context.Context, asset domain.Asset) error {
	const stmt = `
INSERT INTO assets (id, name, symbol, owner_account, active, max_supply, total_supply,
	min_investment, max_investment, metadata_cid, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := db(ctx, r.pool).Exec(ctx, stmt,
		asset.ID,
		asset.Name,
		asset.Symbol,
		asset.OwnerAccount,
		asset.Active,
		asset.MaxSupply,
		asset.TotalSupply,
		asset.MinInvestment,
		asset.MaxInvestment,
		asset.MetadataCID,
		asset.CreatedAt,
		asset.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAssetExists
		}
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

func (r *AdminRepository) GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error) {
	return getAsset(ctx, db(ctx, r.pool), assetID, true)
}

func (r *AdminRepository) UpdateAsset(ctx context.Context, asset domain.Asset) error {
	return updateAsset(ctx, db(ctx, r.pool), asset)
}

func (r *AdminRepository) CreateEscrow(ctx context.Context, escrow domain.EscrowAccount) error {
	const stmt = `
INSERT INTO escrow_accounts (asset_id, custody_account, balance, updated_at)
VALUES ($1, $2, $3, $4)`

	_, err := db(ctx, r.pool).Exec(ctx, stmt,
		escrow.AssetID,
		escrow.CustodyAccount,
		escrow.Balance,
		escrow.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrAssetNotFound
		}
		return fmt.Errorf("create escrow: %w", err)
	}
	return nil
}

func (r *AdminRepository) UpsertComplianceEntry(ctx context.Context, entry domain.ComplianceEntry) error {
	const stmt = `
INSERT INTO compliance_entries (asset_id, account, status, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (asset_id, account) DO UPDATE SET status = $3, updated_at = $4`

	_, err := db(ctx, r.pool).Exec(ctx, stmt, entry.AssetID, entry.Account, entry.Status, entry.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrAssetNotFound
		}
		return fmt.Errorf("upsert compliance entry: %w", err)
	}
	return nil
}

// UpsertRoleGrant is idempotent: granting a role an account already holds
// leaves the original grant time in place.
func (r *AdminRepository) UpsertRoleGrant(ctx context.Context, grant domain.RoleGrant) error {
	const stmt = `
INSERT INTO role_grants (account, role, granted_at)
VALUES ($1, $2, $3)
ON CONFLICT (account, role) DO NOTHING`

	_, err := db(ctx, r.pool).Exec(ctx, stmt, grant.Account, grant.Role, grant.GrantedAt)
	if err != nil {
		return fmt.Errorf("upsert role grant: %w", err)
	}
	return nil
}

// DeleteRoleGrant is idempotent: revoking an absent grant is not an error.
func (r *AdminRepository) DeleteRoleGrant(ctx context.Context, account, role string) error {
	const stmt = `DELETE FROM role_grants WHERE account = $1 AND role = $2`

	if _, err := db(ctx, r.pool).Exec(ctx, stmt, account, role); err != nil {
		return fmt.Errorf("delete role grant: %w", err)
	}
	return nil
}

func (r *AdminRepository) GetWalletForUpdate(ctx context.Context, account string) (domain.Wallet, error) {
	return getWalletForUpdate(ctx, db(ctx, r.pool), account)
}

func (r *AdminRepository) UpsertWallet(ctx context.Context, wallet domain.Wallet) error {
	return upsertWallet(ctx, db(ctx, r.pool), wallet)
}

func (r *AdminRepository) SetPaused(ctx context.Context, paused bool, at time.Time) error {
	const stmt = `UPDATE platform_state SET paused = $1, updated_at = $2 WHERE id = 1`

	tag, err := db(ctx, r.pool).Exec(ctx, stmt, paused, at)
	if err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set paused: platform state row missing")
	}
	return nil
}
