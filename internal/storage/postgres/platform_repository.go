package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bhargavryzer/Ownmali-sub000/internal/authz"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

// PlatformRepository serves the cross-cutting reads: role grants for the
// authorization policy and registry entries for the compliance gate. Both
// are consulted on nearly every request, so the queries stay small.
type PlatformRepository struct {
	pool *pgxpool.Pool
}

func NewPlatformRepository(pool *pgxpool.Pool) *PlatformRepository {
	return &PlatformRepository{pool: pool}
}

func (r *PlatformRepository) RolesOf(ctx context.Context, account string) ([]authz.Role, error) {
	const query = `SELECT role FROM role_grants WHERE account = $1 ORDER BY role`

	rows, err := db(ctx, r.pool).Query(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("roles of account: %w", err)
	}
	defer rows.Close()

	var roles []authz.Role
	for rows.Next() {
		var role authz.Role
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate roles: %w", rows.Err())
	}
	return roles, nil
}

func (r *PlatformRepository) Approved(ctx context.Context, assetID, account string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM compliance_entries
	WHERE asset_id = $1 AND account = $2 AND status = $3
)`

	var approved bool
	err := db(ctx, r.pool).QueryRow(ctx, query, assetID, account, domain.ComplianceApproved).Scan(&approved)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("compliance lookup: %w", err)
	}
	return approved, nil
}

func (r *PlatformRepository) IsPaused(ctx context.Context) (bool, error) {
	return isPaused(ctx, db(ctx, r.pool))
}
