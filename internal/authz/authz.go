// Package authz provides capability-based authorization decisions for
// privileged operations.
package authz

import (
	"context"
	"fmt"

	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

// Capability names a privileged operation class an account may hold.
type Capability string

const (
	CapCreateOrders      Capability = "orders:create"
	CapFinalizeOrders    Capability = "orders:finalize"
	CapManageTokens      Capability = "tokens:manage"
	CapSignMetadata      Capability = "metadata:sign"
	CapManagePlatform    Capability = "platform:manage"
	CapEmergencyWithdraw Capability = "escrow:emergency"
)

// Role is a named bundle of capabilities granted to an account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleFinalizer Role = "finalizer"
	RoleCreator   Role = "creator"
	RoleSigner    Role = "signer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFinalizer, RoleCreator, RoleSigner:
		return true
	}
	return false
}

var roleCaps = map[Role][]Capability{
	RoleAdmin: {
		CapCreateOrders, CapFinalizeOrders, CapManageTokens,
		CapSignMetadata, CapManagePlatform, CapEmergencyWithdraw,
	},
	RoleFinalizer: {CapFinalizeOrders},
	RoleCreator:   {CapCreateOrders},
	RoleSigner:    {CapSignMetadata},
}

// Allows reports whether the role carries the capability.
func Allows(role Role, capability Capability) bool {
	for _, c := range roleCaps[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// RoleStore loads the roles granted to an account.
type RoleStore interface {
	RolesOf(ctx context.Context, account string) ([]Role, error)
}

// Policy answers authorization questions against granted roles.
type Policy struct {
	roles RoleStore
}

func NewPolicy(roles RoleStore) *Policy {
	return &Policy{roles: roles}
}

// Authorize returns nil when the account holds a role carrying the
// capability, and domain.ErrNotAuthorized otherwise.
func (p *Policy) Authorize(ctx context.Context, account string, capability Capability) error {
	if account == "" {
		return domain.ErrNotAuthorized
	}
	granted, err := p.roles.RolesOf(ctx, account)
	if err != nil {
		return fmt.Errorf("load roles for %s: %w", account, err)
	}
	for _, role := range granted {
		if Allows(role, capability) {
			return nil
		}
	}
	return domain.ErrNotAuthorized
}
