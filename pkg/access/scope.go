package access

import (
	"context"
	"database/sql"
	"fmt"
)

// ScopeResolver maps a user to its effective tenant context.
type ScopeResolver struct {
	db *sql.DB
}

// NewScopeResolver creates a resolver over the given database handle.
func NewScopeResolver(db *sql.DB) *ScopeResolver {
	return &ScopeResolver{db: db}
}

// Resolve determines the user's effective scope. SYSTEM_ADMIN is always
// global, regardless of any tenant fields on its record. Every other role is
// scoped through its business unit first, then through the directly assigned
// tenant; legacy records carry either field inconsistently, so whichever one
// resolves wins. If neither does, the result is Unresolved, which every
// decision path treats as fail-closed — a user without a resolvable tenant
// is a data-integrity problem, never an implicit "no restriction".
//
// The returned error is non-nil only for infrastructure failures; missing or
// dangling references alone never error.
func (r *ScopeResolver) Resolve(ctx context.Context, user User) (Scope, error) {
	if user.Role == RoleSystemAdmin {
		return GlobalScope(), nil
	}

	if user.BusinessUnitID != nil {
		var tenantID int64
		err := r.db.QueryRowContext(ctx, `
			SELECT tenant_id FROM business_units WHERE id = $1
		`, *user.BusinessUnitID).Scan(&tenantID)
		switch {
		case err == nil:
			return TenantScope(tenantID), nil
		case err == sql.ErrNoRows:
			// Stale business-unit link; fall through to the direct tenant.
		default:
			return UnresolvedScope(), fmt.Errorf("failed to resolve business unit %d: %w", *user.BusinessUnitID, err)
		}
	}

	if user.TenantID != nil {
		return TenantScope(*user.TenantID), nil
	}

	return UnresolvedScope(), nil
}
