package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bhargavryzer/Ownmali-sub000/internal/authz"
	"github.com/bhargavryzer/Ownmali-sub000/internal/clock"
	"github.com/bhargavryzer/Ownmali-sub000/internal/compliance"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	IsPaused(ctx context.Context) (bool, error)
	GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	CreateOrder(ctx context.Context, order domain.Order) error
	UpdateOrder(ctx context.Context, order domain.Order) error
	ListOrdersByInvestor(ctx context.Context, investor string) ([]domain.Order, error)
	AppendOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

// OrderPolicy picks who may create orders.
type OrderPolicy string

const (
	// OrderPolicyOpen lets any authenticated account place orders for itself.
	OrderPolicyOpen OrderPolicy = "open"
	// OrderPolicyCreator requires the order-creation capability and allows
	// placing orders on an investor's behalf.
	OrderPolicyCreator OrderPolicy = "creator"
)

func (p OrderPolicy) Valid() bool {
	return p == OrderPolicyOpen || p == OrderPolicyCreator
}

// OrderCache serves order read projections. Implementations must be safe
// to skip: a miss is never an error and writes are best effort.
type OrderCache interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, bool)
	SetOrder(ctx context.Context, order domain.Order)
	GetInvestorOrders(ctx context.Context, investor string) ([]domain.Order, bool)
	SetInvestorOrders(ctx context.Context, investor string, orders []domain.Order)
	Invalidate(ctx context.Context, orderID, investor string)
}

type noopOrderCache struct{}

func (noopOrderCache) GetOrder(context.Context, string) (domain.Order, bool) {
	return domain.Order{}, false
}
func (noopOrderCache) SetOrder(context.Context, domain.Order) {}
func (noopOrderCache) GetInvestorOrders(context.Context, string) ([]domain.Order, bool) {
	return nil, false
}
func (noopOrderCache) SetInvestorOrders(context.Context, string, []domain.Order) {}
func (noopOrderCache) Invalidate(context.Context, string, string)                {}

// OrderService drives the order lifecycle and coordinates escrow and the
// token ledger so each transition settles atomically.
type OrderService struct {
	repo        OrderRepository
	tokens      *TokenService
	escrow      *EscrowService
	gate        compliance.Gate
	policy      *authz.Policy
	cache       OrderCache
	clock       clock.Clock
	orderPolicy OrderPolicy
}

func NewOrderService(repo OrderRepository, tokens *TokenService, escrow *EscrowService, gate compliance.Gate, policy *authz.Policy, cache OrderCache, clk clock.Clock, orderPolicy OrderPolicy) *OrderService {
	if cache == nil {
		cache = noopOrderCache{}
	}
	return &OrderService{
		repo:        repo,
		tokens:      tokens,
		escrow:      escrow,
		gate:        gate,
		policy:      policy,
		cache:       cache,
		clock:       clk,
		orderPolicy: orderPolicy,
	}
}

type CreateOrderInput struct {
	Caller   string
	AssetID  string
	Investor string
	Side     domain.OrderSide
	Units    int64
	Price    decimal.Decimal
}

// CreateOrder opens a pending order. Buy orders escrow the full price from
// the investor's wallet; sell orders move the units into escrow custody.
// Either leg failing leaves nothing behind.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if in.AssetID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}
	if !in.Side.Valid() {
		return domain.Order{}, domain.ErrInvalidSide
	}
	if in.Units <= 0 {
		return domain.Order{}, domain.ErrInvalidUnits
	}
	if !in.Price.IsPositive() {
		return domain.Order{}, domain.ErrInvalidPrice
	}
	investor := in.Investor
	if investor == "" {
		investor = in.Caller
	}
	if investor == "" {
		return domain.Order{}, domain.ErrInvalidAccount
	}

	now := s.clock.Now()
	var order domain.Order
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		switch s.orderPolicy {
		case OrderPolicyCreator:
			if err := s.policy.Authorize(txCtx, in.Caller, authz.CapCreateOrders); err != nil {
				return err
			}
		default:
			if investor != in.Caller {
				return domain.ErrNotAuthorized
			}
		}

		asset, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		if !asset.Active {
			return domain.ErrAssetInactive
		}
		if !asset.WithinInvestmentBounds(in.Units) {
			return domain.ErrUnitsOutsideLimits
		}

		order = domain.Order{
			ID:        newID(),
			AssetID:   in.AssetID,
			Investor:  investor,
			Side:      in.Side,
			Units:     in.Units,
			Price:     in.Price,
			Status:    domain.OrderStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		switch in.Side {
		case domain.OrderSideBuy:
			ok, err := s.gate.CanTransfer(txCtx, in.AssetID, "", investor, in.Units)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrComplianceRejected
			}
			if _, err := s.escrow.deposit(txCtx, in.AssetID, investor, in.Price, order.ID); err != nil {
				return err
			}
		case domain.OrderSideSell:
			if err := s.tokens.move(txCtx, &asset, investor, domain.CustodyAccount(in.AssetID), in.Units); err != nil {
				return err
			}
		}

		if err := s.repo.CreateOrder(txCtx, order); err != nil {
			return err
		}
		return s.appendEvent(txCtx, order, domain.OrderEventCreated)
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.cache.Invalidate(ctx, order.ID, order.Investor)
	return order, nil
}

type CancelOrderInput struct {
	Caller  string
	OrderID string
}

// CancelOrder records the cancellation request and advances the order to
// cancelled in one step. Only the order's investor may cancel.
func (s *OrderService) CancelOrder(ctx context.Context, in CancelOrderInput) (domain.Order, error) {
	if in.OrderID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var order domain.Order
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		var err error
		order, err = s.repo.GetOrderForUpdate(txCtx, in.OrderID)
		if err != nil {
			return err
		}
		if order.Investor != in.Caller {
			return domain.ErrNotOrderOwner
		}
		if order.CancelRequestedAt != nil {
			return domain.ErrCancelAlreadyRequested
		}
		if !order.Status.CanTransition(domain.OrderStatusCancelled) {
			return domain.ErrOrderNotPending
		}

		order.CancelRequestedAt = &now
		order.Status = domain.OrderStatusCancelled
		order.UpdatedAt = now
		if err := s.repo.UpdateOrder(txCtx, order); err != nil {
			return err
		}
		return s.appendEvent(txCtx, order, domain.OrderEventCancelled)
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.cache.Invalidate(ctx, order.ID, order.Investor)
	return order, nil
}

type FinalizeOrderInput struct {
	Caller  string
	OrderID string
}

// FinalizeOrder settles a pending order. The compliance gate runs again
// inside the settlement movement, so an approval revoked since creation
// fails the whole operation with no state change.
func (s *OrderService) FinalizeOrder(ctx context.Context, in FinalizeOrderInput) (domain.Order, error) {
	if in.OrderID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var order domain.Order
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapFinalizeOrders); err != nil {
			return err
		}
		var err error
		order, err = s.repo.GetOrderForUpdate(txCtx, in.OrderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransition(domain.OrderStatusFinalized) {
			return domain.ErrOrderNotPending
		}
		asset, err := s.repo.GetAssetForUpdate(txCtx, order.AssetID)
		if err != nil {
			return err
		}
		if !asset.Active {
			return domain.ErrAssetInactive
		}

		switch order.Side {
		case domain.OrderSideBuy:
			if err := s.escrow.release(txCtx, order.AssetID, asset.OwnerAccount, order.Price, domain.EscrowMovementRelease, order.ID); err != nil {
				return err
			}
			if err := s.tokens.move(txCtx, &asset, "", order.Investor, order.Units); err != nil {
				return err
			}
		case domain.OrderSideSell:
			if err := s.escrow.release(txCtx, order.AssetID, order.Investor, order.Price, domain.EscrowMovementRelease, order.ID); err != nil {
				return err
			}
			if err := s.tokens.move(txCtx, &asset, domain.CustodyAccount(order.AssetID), asset.OwnerAccount, order.Units); err != nil {
				return err
			}
		}

		order.Status = domain.OrderStatusFinalized
		order.UpdatedAt = now
		if err := s.repo.UpdateOrder(txCtx, order); err != nil {
			return err
		}
		return s.appendEvent(txCtx, order, domain.OrderEventFinalized)
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.cache.Invalidate(ctx, order.ID, order.Investor)
	return order, nil
}

type RefundOrderInput struct {
	Caller  string
	OrderID string
}

// RefundOrder returns escrowed value for a cancelled order: the price back
// to a buyer's wallet, or the custodied units back to a seller. Callable by
// the order's investor or a finalizer.
func (s *OrderService) RefundOrder(ctx context.Context, in RefundOrderInput) (domain.Order, error) {
	if in.OrderID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var order domain.Order
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureRunning(txCtx); err != nil {
			return err
		}
		var err error
		order, err = s.repo.GetOrderForUpdate(txCtx, in.OrderID)
		if err != nil {
			return err
		}
		if order.Investor != in.Caller {
			if err := s.policy.Authorize(txCtx, in.Caller, authz.CapFinalizeOrders); err != nil {
				return err
			}
		}
		if !order.Status.CanTransition(domain.OrderStatusRefunded) {
			return domain.ErrOrderNotCancelled
		}
		asset, err := s.repo.GetAssetForUpdate(txCtx, order.AssetID)
		if err != nil {
			return err
		}

		switch order.Side {
		case domain.OrderSideBuy:
			if err := s.escrow.release(txCtx, order.AssetID, order.Investor, order.Price, domain.EscrowMovementRefund, order.ID); err != nil {
				return err
			}
		case domain.OrderSideSell:
			if err := s.tokens.move(txCtx, &asset, domain.CustodyAccount(order.AssetID), order.Investor, order.Units); err != nil {
				return err
			}
		}

		order.Status = domain.OrderStatusRefunded
		order.UpdatedAt = now
		if err := s.repo.UpdateOrder(txCtx, order); err != nil {
			return err
		}
		return s.appendEvent(txCtx, order, domain.OrderEventRefunded)
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.cache.Invalidate(ctx, order.ID, order.Investor)
	return order, nil
}

// GetOrder reads one order, served from the projection cache when warm.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}
	if order, ok := s.cache.GetOrder(ctx, orderID); ok {
		return order, nil
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	s.cache.SetOrder(ctx, order)
	return order, nil
}

// ListOrdersByInvestor reads an investor's orders, newest first.
func (s *OrderService) ListOrdersByInvestor(ctx context.Context, investor string) ([]domain.Order, error) {
	if investor == "" {
		return nil, domain.ErrInvalidAccount
	}
	if orders, ok := s.cache.GetInvestorOrders(ctx, investor); ok {
		return orders, nil
	}
	orders, err := s.repo.ListOrdersByInvestor(ctx, investor)
	if err != nil {
		return nil, err
	}
	s.cache.SetInvestorOrders(ctx, investor, orders)
	return orders, nil
}

func (s *OrderService) ensureRunning(ctx context.Context) error {
	paused, err := s.repo.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return domain.ErrSystemPaused
	}
	return nil
}

type orderEventPayload struct {
	ID                string     `json:"id"`
	AssetID           string     `json:"asset_id"`
	Investor          string     `json:"investor"`
	Side              string     `json:"side"`
	Units             int64      `json:"units"`
	Price             string     `json:"price"`
	Status            string     `json:"status"`
	CancelRequestedAt *time.Time `json:"cancel_requested_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// appendEvent snapshots the order into the append-only event stream.
func (s *OrderService) appendEvent(ctx context.Context, order domain.Order, typ domain.OrderEventType) error {
	payload, err := json.Marshal(orderEventPayload{
		ID:                order.ID,
		AssetID:           order.AssetID,
		Investor:          order.Investor,
		Side:              string(order.Side),
		Units:             order.Units,
		Price:             order.Price.String(),
		Status:            string(order.Status),
		CancelRequestedAt: order.CancelRequestedAt,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return s.repo.AppendOrderEvent(ctx, domain.OrderEvent{
		ID:      newID(),
		OrderID: order.ID,
		Type:    typ,
		Payload: payload,
		At:      s.clock.Now(),
	})
}
