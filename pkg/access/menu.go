package access

import (
	"context"
	"database/sql"
	"fmt"
)

// MenuResolver filters and orders navigation entries by tenant scope and
// per-role visibility flags.
type MenuResolver struct {
	db     *sql.DB
	scopes *ScopeResolver
}

// NewMenuResolver creates a menu resolver over the given database handle.
func NewMenuResolver(db *sql.DB) *MenuResolver {
	return &MenuResolver{db: db, scopes: NewScopeResolver(db)}
}

// VisibleMenu returns the ordered navigation entries for the user.
//
// Candidates are active items in the user's scope: global users see only
// items with no tenant, tenant-scoped users see only their tenant's items —
// the two surfaces never mix. Each candidate additionally needs a
// (role, item) row with both is_visible and is_enabled set; absence of
// configuration is not visibility. The result is ordered by sort_order with
// the item id as a stable tie-break, so repeated calls against unchanged
// data return the same sequence.
//
// An empty slice is a valid outcome (misconfigured role, freshly provisioned
// tenant, unresolved scope), not an error.
func (m *MenuResolver) VisibleMenu(ctx context.Context, user User) ([]MenuItem, error) {
	scope, err := m.scopes.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	switch scope.Kind {
	case ScopeUnresolved:
		return []MenuItem{}, nil
	case ScopeGlobal:
		rows, err = m.db.QueryContext(ctx, `
			SELECT mi.id, mi.tenant_id, mi.path, mi.label, mi.sort_order, mi.is_active
			FROM menu_items mi
			JOIN role_menu_items rmi ON rmi.menu_item_id = mi.id
			WHERE mi.is_active = TRUE
			  AND mi.tenant_id IS NULL
			  AND rmi.role = $1
			  AND rmi.is_visible = TRUE
			  AND rmi.is_enabled = TRUE
			ORDER BY mi.sort_order ASC, mi.id ASC
		`, string(user.Role))
	case ScopeTenant:
		rows, err = m.db.QueryContext(ctx, `
			SELECT mi.id, mi.tenant_id, mi.path, mi.label, mi.sort_order, mi.is_active
			FROM menu_items mi
			JOIN role_menu_items rmi ON rmi.menu_item_id = mi.id
			WHERE mi.is_active = TRUE
			  AND mi.tenant_id = $1
			  AND rmi.role = $2
			  AND rmi.is_visible = TRUE
			  AND rmi.is_enabled = TRUE
			ORDER BY mi.sort_order ASC, mi.id ASC
		`, scope.TenantID, string(user.Role))
	default:
		return []MenuItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := []MenuItem{}
	for rows.Next() {
		var item MenuItem
		var tenantID sql.NullInt64
		if err := rows.Scan(&item.ID, &tenantID, &item.Path, &item.Label, &item.SortOrder, &item.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		if tenantID.Valid {
			id := tenantID.Int64
			item.TenantID = &id
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
