package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

// Queries shared by more than one repository live here so the SQL exists
// once. Each takes a querier and joins whatever transaction the caller
// runs in.

const assetColumns = `id, name, symbol, owner_account, active, max_supply, total_supply,
	min_investment, max_investment, metadata_cid, created_at, updated_at`

func scanAsset(row pgx.Row) (domain.Asset, error) {
	var a domain.Asset
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Symbol,
		&a.OwnerAccount,
		&a.Active,
		&a.MaxSupply,
		&a.TotalSupply,
		&a.MinInvestment,
		&a.MaxInvestment,
		&a.MetadataCID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func getAsset(ctx context.Context, q querier, assetID string, lock bool) (domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	asset, err := scanAsset(q.QueryRow(ctx, query, assetID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Asset{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Asset{}, domain.ErrAssetNotFound
		}
		return domain.Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

func updateAsset(ctx context.Context, q querier, asset domain.Asset) error {
	const stmt = `
UPDATE assets
SET name = $2, symbol = $3, owner_account = $4, active = $5, max_supply = $6,
	total_supply = $7, min_investment = $8, max_investment = $9,
	metadata_cid = $10, updated_at = $11
WHERE id = $1`

	tag, err := q.Exec(ctx, stmt,
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
		asset.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientBalance
		}
		return fmt.Errorf("update asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

func isPaused(ctx context.Context, q querier) (bool, error) {
	const query = `SELECT paused FROM platform_state WHERE id = 1`

	var paused bool
	if err := q.QueryRow(ctx, query).Scan(&paused); err != nil {
		return false, fmt.Errorf("read pause state: %w", err)
	}
	return paused, nil
}

// getWalletForUpdate locks the wallet row when one exists. Accounts
// without a row read as zero balances; the row appears on first upsert.
func getWalletForUpdate(ctx context.Context, q querier, account string) (domain.Wallet, error) {
	const query = `SELECT account, balance, updated_at FROM wallets WHERE account = $1 FOR UPDATE`

	var w domain.Wallet
	err := q.QueryRow(ctx, query, account).Scan(&w.Account, &w.Balance, &w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Wallet{Account: account}, nil
		}
		return domain.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func upsertWallet(ctx context.Context, q querier, wallet domain.Wallet) error {
	const stmt = `
INSERT INTO wallets (account, balance, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (account) DO UPDATE SET balance = $2, updated_at = $3`

	if _, err := q.Exec(ctx, stmt, wallet.Account, wallet.Balance, wallet.UpdatedAt); err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientFunds
		}
		return fmt.Errorf("upsert wallet: %w", err)
	}
	return nil
}
