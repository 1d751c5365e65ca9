package access

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Catalog stores permission definitions and per-role grant flags.
type Catalog struct {
	db *sql.DB
}

// NewCatalog creates a catalog over the given database handle.
func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

// Grant normalizes the identifier, upserts the permission row if absent and
// upserts the (role, permission) grant row with the given flag. It is
// idempotent: repeated identical calls leave exactly one grant row, and
// concurrent calls on the same pair are last-writer-wins.
func (c *Catalog) Grant(ctx context.Context, role Role, resource, action string, granted bool) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	res, err := NormalizeResource(resource)
	if err != nil {
		return err
	}
	act, err := NormalizeAction(action)
	if err != nil {
		return err
	}
	name := res + delimiter + act

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin grant transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var permissionID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO permissions (name, resource, action, description, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $4)
		ON CONFLICT (resource, action) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		RETURNING id
	`, name, res, act, now).Scan(&permissionID)
	if err != nil {
		return fmt.Errorf("failed to upsert permission %s: %w", name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO role_permissions (role, permission_id, granted, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (role, permission_id) DO UPDATE SET granted = EXCLUDED.granted, updated_at = EXCLUDED.updated_at
	`, string(role), permissionID, granted, now)
	if err != nil {
		return fmt.Errorf("failed to upsert grant for %s on %s: %w", role, name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit grant: %w", err)
	}
	return nil
}

// IsGranted reports whether the role holds a granted=true row for the
// normalized identifier. A missing row and an explicit granted=false row
// both deny; there is no role inheritance and no wildcard matching.
func (c *Catalog) IsGranted(ctx context.Context, role Role, resource, action string) (bool, error) {
	res, err := NormalizeResource(resource)
	if err != nil {
		return false, err
	}
	act, err := NormalizeAction(action)
	if err != nil {
		return false, err
	}

	var granted bool
	err = c.db.QueryRowContext(ctx, `
		SELECT rp.granted
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role = $1 AND p.resource = $2 AND p.action = $3
	`, string(role), res, act).Scan(&granted)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up grant for %s: %w", role, err)
	}
	return granted, nil
}

// EffectivePermissions returns the sorted canonical identifiers the role is
// granted. It exists for capability display and audit; individual
// authorization checks go through IsGranted so they never act on a stale
// snapshot.
func (c *Catalog) EffectivePermissions(ctx context.Context, role Role) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT p.name
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role = $1 AND rp.granted = TRUE
		ORDER BY p.name ASC
	`, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list effective permissions for %s: %w", role, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan permission name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetPermission retrieves a permission by its stored resource and action.
func (c *Catalog) GetPermission(ctx context.Context, resource, action string) (*Permission, error) {
	var p Permission
	err := c.db.QueryRowContext(ctx, `
		SELECT id, name, resource, action, description, created_at, updated_at
		FROM permissions
		WHERE resource = $1 AND action = $2
	`, resource, action).Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: permission %s%s%s", ErrNotFound, resource, delimiter, action)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &p, nil
}

// ListPermissions returns every permission in the catalog, ordered by name.
func (c *Catalog) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, resource, action, description, created_at, updated_at
		FROM permissions
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListGrants returns all grant rows for a permission, explicit revocations
// included.
func (c *Catalog) ListGrants(ctx context.Context, permissionID int64) ([]Grant, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT role, permission_id, granted, updated_at
		FROM role_permissions
		WHERE permission_id = $1
		ORDER BY role ASC
	`, permissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		var role string
		if err := rows.Scan(&role, &g.PermissionID, &g.Granted, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		g.Role = Role(role)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
