package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *TokenRepository) IsPaused(ctx context.Context) (bool, error) {
	return isPaused(ctx, db(ctx, r.pool))
}

func (r *TokenRepository) GetAsset(ctx context.Context, assetID string) (domain.Asset, error) {
	return getAsset(ctx, db(ctx, r.pool), assetID, false)
}

func (r *TokenRepository) GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error) {
	return getAsset(ctx, db(ctx, r.pool), assetID, true)
}

func (r *TokenRepository) UpdateAsset(ctx context.Context, asset domain.Asset) error {
	return updateAsset(ctx, db(ctx, r.pool), asset)
}

func (r *TokenRepository) GetHolding(ctx context.Context, assetID, account string) (domain.Holding, error) {
	return r.getHolding(ctx, assetID, account, false)
}

func (r *TokenRepository) GetHoldingForUpdate(ctx context.Context, assetID, account string) (domain.Holding, error) {
	return r.getHolding(ctx, assetID, account, true)
}

// getHolding reads one ledger position. Accounts without a row hold zero
// units; the row appears on first upsert.
func (r *TokenRepository) getHolding(ctx context.Context, assetID, account string, lock bool) (domain.Holding, error) {
	query := `
SELECT asset_id, account, balance, locked_until, updated_at
FROM holdings
WHERE asset_id = $1 AND account = $2`
	if lock {
		query += ` FOR UPDATE`
	}

	var h domain.Holding
	err := db(ctx, r.pool).QueryRow(ctx, query, assetID, account).
		Scan(&h.AssetID, &h.Account, &h.Balance, &h.LockedUntil, &h.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Holding{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Holding{AssetID: assetID, Account: account}, nil
		}
		return domain.Holding{}, fmt.Errorf("get holding: %w", err)
	}
	return h, nil
}

func (r *TokenRepository) UpsertHolding(ctx context.Context, holding domain.Holding) error {
	const stmt = `
INSERT INTO holdings (asset_id, account, balance, locked_until, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (asset_id, account) DO UPDATE SET balance = $3, locked_until = $4, updated_at = $5`

	_, err := db(ctx, r.pool).Exec(ctx, stmt,
		holding.AssetID,
		holding.Account,
		holding.Balance,
		holding.LockedUntil,
		holding.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrAssetNotFound
		}
		if isCheckViolation(err) {
			return domain.ErrInsufficientBalance
		}
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

const metadataUpdateColumns = `id, asset_id, new_cid, threshold, approvals, executed, created_at, updated_at`

func (r *TokenRepository) CreateMetadataUpdate(ctx context.Context, update domain.MetadataUpdate) error {
	const stmt = `
INSERT INTO metadata_updates (id, asset_id, new_cid, threshold, approvals, executed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := db(ctx, r.pool).Exec(ctx, stmt,
		update.ID,
		update.AssetID,
		update.NewCID,
		update.Threshold,
		update.Approvals,
		update.Executed,
		update.CreatedAt,
		update.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrAssetNotFound
		}
		return fmt.Errorf("create metadata update: %w", err)
	}
	return nil
}

func (r *TokenRepository) GetMetadataUpdateForUpdate(ctx context.Context, updateID string) (domain.MetadataUpdate, error) {
	query := `SELECT ` + metadataUpdateColumns + ` FROM metadata_updates WHERE id = $1 FOR UPDATE`

	var u domain.MetadataUpdate
	err := db(ctx, r.pool).QueryRow(ctx, query, updateID).Scan(
		&u.ID,
		&u.AssetID,
		&u.NewCID,
		&u.Threshold,
		&u.Approvals,
		&u.Executed,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.MetadataUpdate{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.MetadataUpdate{}, domain.ErrUpdateNotFound
		}
		return domain.MetadataUpdate{}, fmt.Errorf("get metadata update: %w", err)
	}
	return u, nil
}

func (r *TokenRepository) UpdateMetadataUpdate(ctx context.Context, update domain.MetadataUpdate) error {
	const stmt = `
UPDATE metadata_updates
SET approvals = $2, executed = $3, updated_at = $4
WHERE id = $1`

	tag, err := db(ctx, r.pool).Exec(ctx, stmt,
		update.ID,
		update.Approvals,
		update.Executed,
		update.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update metadata update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUpdateNotFound
	}
	return nil
}

// AddMetadataApproval records one signer's approval. The primary key makes
// a second approval by the same signer a unique violation.
func (r *TokenRepository) AddMetadataApproval(ctx context.Context, approval domain.MetadataApproval) error {
	const stmt = `
INSERT INTO metadata_approvals (update_id, signer, approved_at)
VALUES ($1, $2, $3)`

	_, err := db(ctx, r.pool).Exec(ctx, stmt, approval.UpdateID, approval.Signer, approval.At)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyApproved
		}
		if isForeignKeyViolation(err) {
			return domain.ErrUpdateNotFound
		}
		return fmt.Errorf("add metadata approval: %w", err)
	}
	return nil
}
