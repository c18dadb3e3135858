package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bhargavryzer/Ownmali-sub000/internal/authz"
	"github.com/bhargavryzer/Ownmali-sub000/internal/clock"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

type EscrowRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	IsPaused(ctx context.Context) (bool, error)
	GetEscrow(ctx context.Context, assetID string) (domain.EscrowAccount, error)
	GetEscrowForUpdate(ctx context.Context, assetID string) (domain.EscrowAccount, error)
	UpdateEscrowBalance(ctx context.Context, assetID string, balance decimal.Decimal, at time.Time) error
	InsertMovement(ctx context.Context, movement domain.EscrowMovement) error
	// GetWalletForUpdate returns a zero-balance wallet when the account has
	// no row yet; absence is not an error.
	GetWalletForUpdate(ctx context.Context, account string) (domain.Wallet, error)
	UpsertWallet(ctx context.Context, wallet domain.Wallet) error
}

// EscrowService guards the per-asset settlement pools. Disbursements are
// reserved for order settlement and the emergency path; deposits are open.
type EscrowService struct {
	repo     EscrowRepository
	policy   *authz.Policy
	clock    clock.Clock
	maxBatch int
}

func NewEscrowService(repo EscrowRepository, policy *authz.Policy, clk clock.Clock, maxBatch int) *EscrowService {
	return &EscrowService{
		repo:     repo,
		policy:   policy,
		clock:    clk,
		maxBatch: maxBatch,
	}
}

type DepositInput struct {
	AssetID string
	From    string
	Amount  decimal.Decimal
}

// Deposit moves settlement funds from the depositor's wallet into the
// asset's pool. Deposits stay open while the platform is paused; pausing
// only stops disbursements.
func (s *EscrowService) Deposit(ctx context.Context, in DepositInput) (domain.EscrowMovement, error) {
	if in.AssetID == "" {
		return domain.EscrowMovement{}, domain.ErrInvalidID
	}
	if in.From == "" {
		return domain.EscrowMovement{}, domain.ErrInvalidAccount
	}
	if !in.Amount.IsPositive() {
		return domain.EscrowMovement{}, domain.ErrInvalidAmount
	}

	var movement domain.EscrowMovement
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		m, err := s.deposit(txCtx, in.AssetID, in.From, in.Amount, "")
		if err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		return domain.EscrowMovement{}, err
	}
	return movement, nil
}

type EmergencyWithdrawalInput struct {
	Caller     string
	AssetID    string
	Recipients []string
	Amounts    []decimal.Decimal
}

// EmergencyWithdrawal drains pool funds to the given recipients. It is the
// one disbursement that requires the platform to be paused, and it is
// capped at the configured batch size.
func (s *EscrowService) EmergencyWithdrawal(ctx context.Context, in EmergencyWithdrawalInput) ([]domain.EscrowMovement, error) {
	if in.AssetID == "" {
		return nil, domain.ErrInvalidID
	}
	if len(in.Recipients) != len(in.Amounts) {
		return nil, domain.ErrBatchLengthMismatch
	}
	if len(in.Recipients) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if len(in.Recipients) > s.maxBatch {
		return nil, domain.ErrBatchTooLarge
	}
	for i := range in.Recipients {
		if in.Recipients[i] == "" {
			return nil, domain.ErrInvalidAccount
		}
		if !in.Amounts[i].IsPositive() {
			return nil, domain.ErrInvalidAmount
		}
	}

	var movements []domain.EscrowMovement
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.policy.Authorize(txCtx, in.Caller, authz.CapEmergencyWithdraw); err != nil {
			return err
		}
		paused, err := s.repo.IsPaused(txCtx)
		if err != nil {
			return err
		}
		if !paused {
			return domain.ErrSystemNotPaused
		}

		now := s.clock.Now()
		pool, err := s.repo.GetEscrowForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, amount := range in.Amounts {
			total = total.Add(amount)
		}
		if pool.Balance.LessThan(total) {
			return domain.ErrInsufficientEscrow
		}
		if err := s.repo.UpdateEscrowBalance(txCtx, in.AssetID, pool.Balance.Sub(total), now); err != nil {
			return err
		}

		movements = make([]domain.EscrowMovement, 0, len(in.Recipients))
		for i, recipient := range in.Recipients {
			wallet, err := s.repo.GetWalletForUpdate(txCtx, recipient)
			if err != nil {
				return err
			}
			wallet.Balance = wallet.Balance.Add(in.Amounts[i])
			wallet.UpdatedAt = now
			if err := s.repo.UpsertWallet(txCtx, wallet); err != nil {
				return err
			}
			movement := domain.EscrowMovement{
				ID:           newID(),
				AssetID:      in.AssetID,
				Kind:         domain.EscrowMovementEmergency,
				Counterparty: recipient,
				Amount:       in.Amounts[i],
				At:           now,
			}
			if err := s.repo.InsertMovement(txCtx, movement); err != nil {
				return err
			}
			movements = append(movements, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// PoolBalance reads the escrow account for an asset.
func (s *EscrowService) PoolBalance(ctx context.Context, assetID string) (domain.EscrowAccount, error) {
	if assetID == "" {
		return domain.EscrowAccount{}, domain.ErrInvalidID
	}
	return s.repo.GetEscrow(ctx, assetID)
}

// deposit runs inside the caller's transaction: it locks the pool row,
// debits the depositor wallet, credits the pool, and records the movement.
func (s *EscrowService) deposit(ctx context.Context, assetID, from string, amount decimal.Decimal, orderID string) (domain.EscrowMovement, error) {
	now := s.clock.Now()
	pool, err := s.repo.GetEscrowForUpdate(ctx, assetID)
	if err != nil {
		return domain.EscrowMovement{}, err
	}
	wallet, err := s.repo.GetWalletForUpdate(ctx, from)
	if err != nil {
		return domain.EscrowMovement{}, err
	}
	if wallet.Balance.LessThan(amount) {
		return domain.EscrowMovement{}, domain.ErrInsufficientFunds
	}
	wallet.Balance = wallet.Balance.Sub(amount)
	wallet.UpdatedAt = now
	if err := s.repo.UpsertWallet(ctx, wallet); err != nil {
		return domain.EscrowMovement{}, err
	}
	if err := s.repo.UpdateEscrowBalance(ctx, assetID, pool.Balance.Add(amount), now); err != nil {
		return domain.EscrowMovement{}, err
	}
	movement := domain.EscrowMovement{
		ID:           newID(),
		AssetID:      assetID,
		Kind:         domain.EscrowMovementDeposit,
		Counterparty: from,
		Amount:       amount,
		OrderID:      orderID,
		At:           now,
	}
	if err := s.repo.InsertMovement(ctx, movement); err != nil {
		return domain.EscrowMovement{}, err
	}
	return movement, nil
}

// release pays out from the pool to an account's wallet inside the
// caller's transaction. Order settlement and refunds are the only callers.
func (s *EscrowService) release(ctx context.Context, assetID, to string, amount decimal.Decimal, kind domain.EscrowMovementKind, orderID string) error {
	now := s.clock.Now()
	pool, err := s.repo.GetEscrowForUpdate(ctx, assetID)
	if err != nil {
		return err
	}
	if pool.Balance.LessThan(amount) {
		return domain.ErrInsufficientEscrow
	}
	if err := s.repo.UpdateEscrowBalance(ctx, assetID, pool.Balance.Sub(amount), now); err != nil {
		return err
	}
	wallet, err := s.repo.GetWalletForUpdate(ctx, to)
	if err != nil {
		return err
	}
	wallet.Balance = wallet.Balance.Add(amount)
	wallet.UpdatedAt = now
	if err := s.repo.UpsertWallet(ctx, wallet); err != nil {
		return err
	}
	return s.repo.InsertMovement(ctx, domain.EscrowMovement{
		ID:           newID(),
		AssetID:      assetID,
		Kind:         kind,
		Counterparty: to,
		Amount:       amount,
		OrderID:      orderID,
		At:           now,
	})
}
