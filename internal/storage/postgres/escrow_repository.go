package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

type EscrowRepository struct {
	pool *pgxpool.Pool
}

func NewEscrowRepository(pool *pgxpool.Pool) *EscrowRepository {
	return &EscrowRepository{pool: pool}
}

func (r *EscrowRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *EscrowRepository) IsPaused(ctx context.Context) (bool, error) {
	return isPaused(ctx, db(ctx, r.pool))
}

func (r *EscrowRepository) GetEscrow(ctx context.Context, assetID string) (domain.EscrowAccount, error) {
	return r.getEscrow(ctx, assetID, false)
}

func (r *EscrowRepository) GetEscrowForUpdate(ctx context.Context, assetID string) (domain.EscrowAccount, error) {
	return r.getEscrow(ctx, assetID, true)
}

func (r *EscrowRepository) getEscrow(ctx context.Context, assetID string, lock bool) (domain.EscrowAccount, error) {
	query := `
SELECT asset_id, custody_account, balance, updated_at
FROM escrow_accounts
WHERE asset_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var e domain.EscrowAccount
	err := db(ctx, r.pool).QueryRow(ctx, query, assetID).
		Scan(&e.AssetID, &e.CustodyAccount, &e.Balance, &e.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.EscrowAccount{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.EscrowAccount{}, domain.ErrEscrowNotFound
		}
		return domain.EscrowAccount{}, fmt.Errorf("get escrow: %w", err)
	}
	return e, nil
}

func (r *EscrowRepository) UpdateEscrowBalance(ctx context.Context, assetID string, balance decimal.Decimal, at time.Time) error {
	const stmt = `UPDATE escrow_accounts SET balance = $2, updated_at = $3 WHERE asset_id = $1`

	tag, err := db(ctx, r.pool).Exec(ctx, stmt, assetID, balance, at)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientEscrow
		}
		return fmt.Errorf("update escrow balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEscrowNotFound
	}
	return nil
}

func (r *EscrowRepository) InsertMovement(ctx context.Context, movement domain.EscrowMovement) error {
	const stmt = `
INSERT INTO escrow_movements (id, asset_id, kind, counterparty, amount, order_id, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	// Movements outside any order carry a NULL order reference.
	var orderID *string
	if movement.OrderID != "" {
		orderID = &movement.OrderID
	}

	_, err := db(ctx, r.pool).Exec(ctx, stmt,
		movement.ID,
		movement.AssetID,
		movement.Kind,
		movement.Counterparty,
		movement.Amount,
		orderID,
		movement.At,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrEscrowNotFound
		}
		return fmt.Errorf("insert escrow movement: %w", err)
	}
	return nil
}

// ListMovements returns an asset's escrow movements, newest first.
func (r *EscrowRepository) ListMovements(ctx context.Context, assetID string) ([]domain.EscrowMovement, error) {
	const query = `
SELECT id, asset_id, kind, counterparty, amount, order_id, occurred_at
FROM escrow_movements
WHERE asset_id = $1
ORDER BY occurred_at DESC, id`

	rows, err := db(ctx, r.pool).Query(ctx, query, assetID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list escrow movements: %w", err)
	}
	defer rows.Close()

	var movements []domain.EscrowMovement
	for rows.Next() {
		var m domain.EscrowMovement
		var orderID *string
		if err := rows.Scan(&m.ID, &m.AssetID, &m.Kind, &m.Counterparty, &m.Amount, &orderID, &m.At); err != nil {
			return nil, fmt.Errorf("scan escrow movement: %w", err)
		}
		if orderID != nil {
			m.OrderID = *orderID
		}
		movements = append(movements, m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate escrow movements: %w", rows.Err())
	}
	return movements, nil
}

func (r *EscrowRepository) GetWalletForUpdate(ctx context.Context, account string) (domain.Wallet, error) {
	return getWalletForUpdate(ctx, db(ctx, r.pool), account)
}

func (r *EscrowRepository) UpsertWallet(ctx context.Context, wallet domain.Wallet) error {
	return upsertWallet(ctx, db(ctx, r.pool), wallet)
}
