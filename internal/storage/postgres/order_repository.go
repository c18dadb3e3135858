package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) IsPaused(ctx context.Context) (bool, error) {
	return isPaused(ctx, db(ctx, r.pool))
}

func (r *OrderRepository) GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error) {
	return getAsset(ctx, db(ctx, r.pool), assetID, true)
}

const orderColumns = `id, asset_id, investor, side, units, price, status,
	cancel_requested_at, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.AssetID,
		&o.Investor,
		&o.Side,
		&o.Units,
		&o.Price,
		&o.Status,
		&o.CancelRequestedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return r.getOrder(ctx, orderID, false)
}

func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	return r.getOrder(ctx, orderID, true)
}

func (r *OrderRepository) getOrder(ctx context.Context, orderID string, lock bool) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(db(ctx, r.pool).QueryRow(ctx, query, orderID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, asset_id, investor, side, units, price, status,
	cancel_requested_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := db(ctx, r.pool).Exec(ctx, stmt,
		order.ID,
		order.AssetID,
		order.Investor,
		order.Side,
		order.Units,
		order.Price,
		order.Status,
		order.CancelRequestedAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrAssetNotFound
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) UpdateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
UPDATE orders
SET status = $2, cancel_requested_at = $3, updated_at = $4
WHERE id = $1`

	tag, err := db(ctx, r.pool).Exec(ctx, stmt,
		order.ID,
		order.Status,
		order.CancelRequestedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) ListOrdersByInvestor(ctx context.Context, investor string) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE investor = $1 ORDER BY created_at DESC, id`

	rows, err := db(ctx, r.pool).Query(ctx, query, investor)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate orders: %w", rows.Err())
	}
	return orders, nil
}

func (r *OrderRepository) AppendOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	const stmt = `
INSERT INTO order_events (id, order_id, type, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := db(ctx, r.pool).Exec(ctx, stmt,
		event.ID,
		event.OrderID,
		event.Type,
		event.Payload,
		event.At,
	)
	if err != nil {
		return fmt.Errorf("append order event: %w", err)
	}
	return nil
}

// ListOrderEvents returns an order's event stream, oldest first.
func (r *OrderRepository) ListOrderEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	const query = `
SELECT id, order_id, type, payload, occurred_at
FROM order_events
WHERE order_id = $1
ORDER BY occurred_at ASC, id`

	rows, err := db(ctx, r.pool).Query(ctx, query, orderID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list order events: %w", err)
	}
	defer rows.Close()

	var events []domain.OrderEvent
	for rows.Next() {
		var event domain.OrderEvent
		if err := rows.Scan(&event.ID, &event.OrderID, &event.Type, &event.Payload, &event.At); err != nil {
			return nil, fmt.Errorf("scan order event: %w", err)
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate order events: %w", rows.Err())
	}
	return events, nil
}
