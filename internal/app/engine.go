package app

import (
	"errors"
	"fmt"

	"github.com/bhargavryzer/Ownmali-sub000/internal/authz"
	"github.com/bhargavryzer/Ownmali-sub000/internal/clock"
	"github.com/bhargavryzer/Ownmali-sub000/internal/compliance"
)

// Config carries the engine's behavioral settings, validated once at
// build time.
type Config struct {
	OrderPolicy       OrderPolicy
	MaxBatchSize      int
	MetadataThreshold int
}

// Deps carries the engine's collaborators. Cache and Clock are optional;
// everything else is required.
type Deps struct {
	Orders OrderRepository
	Tokens TokenRepository
	Escrow EscrowRepository
	Admin  AdminRepository
	Roles  authz.RoleStore
	Gate   compliance.Gate
	Cache  OrderCache
	Clock  clock.Clock
}

// Engine is the wired service set for one deployment. Engines are plain
// values and independent instances share nothing.
type Engine struct {
	Orders *OrderService
	Tokens *TokenService
	Escrow *EscrowService
	Admin  *AdminService
}

// NewEngine validates the configuration and wires the service set.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if !cfg.OrderPolicy.Valid() {
		return nil, fmt.Errorf("invalid order policy %q", cfg.OrderPolicy)
	}
	if cfg.MaxBatchSize < 1 {
		return nil, errors.New("max batch size must be at least 1")
	}
	if cfg.MetadataThreshold < 1 {
		return nil, errors.New("metadata threshold must be at least 1")
	}
	switch {
	case deps.Orders == nil:
		return nil, errors.New("order repository is required")
	case deps.Tokens == nil:
		return nil, errors.New("token repository is required")
	case deps.Escrow == nil:
		return nil, errors.New("escrow repository is required")
	case deps.Admin == nil:
		return nil, errors.New("admin repository is required")
	case deps.Roles == nil:
		return nil, errors.New("role store is required")
	case deps.Gate == nil:
		return nil, errors.New("compliance gate is required")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}

	policy := authz.NewPolicy(deps.Roles)
	escrow := NewEscrowService(deps.Escrow, policy, clk, cfg.MaxBatchSize)
	tokens := NewTokenService(deps.Tokens, deps.Gate, policy, clk, cfg.MaxBatchSize, cfg.MetadataThreshold)
	orders := NewOrderService(deps.Orders, tokens, escrow, deps.Gate, policy, deps.Cache, clk, cfg.OrderPolicy)
	admin := NewAdminService(deps.Admin, policy, clk)

	return &Engine{
		Orders: orders,
		Tokens: tokens,
		Escrow: escrow,
		Admin:  admin,
	}, nil
}
