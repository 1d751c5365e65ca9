package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store provides CRUD over the scoping entities.
type Store struct {
	db *sql.DB
}

// NewStore creates a new directory store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateTenant provisions a new tenant.
func (s *Store) CreateTenant(ctx context.Context, name string, kind TenantKind) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	if kind == "" {
		kind = TenantKindCompany
	}

	tenant := &Tenant{Name: name, Kind: kind, CreatedAt: time.Now().UTC()}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tenants (name, kind, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id
	`, name, string(kind), tenant.CreatedAt).Scan(&tenant.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("tenant %q: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}
	return tenant, nil
}

// GetTenant loads a tenant by ID.
func (s *Store) GetTenant(ctx context.Context, id int64) (*Tenant, error) {
	var tenant Tenant
	var kind string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, created_at FROM tenants WHERE id = $1
	`, id).Scan(&tenant.ID, &tenant.Name, &kind, &tenant.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tenant %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	tenant.Kind = TenantKind(kind)
	return &tenant, nil
}

// ListTenants returns all tenants ordered by name.
func (s *Store) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, created_at FROM tenants ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []Tenant{}
	for rows.Next() {
		var tenant Tenant
		var kind string
		if err := rows.Scan(&tenant.ID, &tenant.Name, &kind, &tenant.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenant.Kind = TenantKind(kind)
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

// DeleteTenant removes a tenant and everything scoped under it, dependents
// first so referential integrity holds at every point in the transaction.
func (s *Store) DeleteTenant(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`DELETE FROM role_menu_items WHERE menu_item_id IN (SELECT id FROM menu_items WHERE tenant_id = $1)`,
		`DELETE FROM menu_items WHERE tenant_id = $1`,
		`UPDATE users SET business_unit_id = NULL WHERE business_unit_id IN (SELECT id FROM business_units WHERE tenant_id = $1)`,
		`UPDATE users SET tenant_id = NULL WHERE tenant_id = $1`,
		`DELETE FROM business_units WHERE tenant_id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("failed to delete tenant dependents: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tenant %d: %w", id, ErrNotFound)
	}

	return tx.Commit()
}

// CreateBusinessUnit adds a unit under an existing tenant.
func (s *Store) CreateBusinessUnit(ctx context.Context, tenantID int64, name string) (*BusinessUnit, error) {
	if name == "" {
		return nil, fmt.Errorf("business unit name is required")
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, tenantID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check tenant: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("tenant %d: %w", tenantID, ErrNotFound)
	}

	unit := &BusinessUnit{TenantID: tenantID, Name: name, CreatedAt: time.Now().UTC()}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO business_units (tenant_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id
	`, tenantID, name, unit.CreatedAt).Scan(&unit.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("business unit %q: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create business unit: %w", err)
	}
	return unit, nil
}

// GetBusinessUnit loads a business unit by ID.
func (s *Store) GetBusinessUnit(ctx context.Context, id int64) (*BusinessUnit, error) {
	var unit BusinessUnit
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, created_at FROM business_units WHERE id = $1
	`, id).Scan(&unit.ID, &unit.TenantID, &unit.Name, &unit.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("business unit %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business unit: %w", err)
	}
	return &unit, nil
}

// ListBusinessUnits returns the units under a tenant.
func (s *Store) ListBusinessUnits(ctx context.Context, tenantID int64) ([]BusinessUnit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, created_at
		FROM business_units
		WHERE tenant_id = $1
		ORDER BY name ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list business units: %w", err)
	}
	defer rows.Close()

	units := []BusinessUnit{}
	for rows.Next() {
		var unit BusinessUnit
		if err := rows.Scan(&unit.ID, &unit.TenantID, &unit.Name, &unit.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan business unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// CreateUser adds a user. Scoping links are validated when present; a user
// may legitimately carry neither.
func (s *Store) CreateUser(ctx context.Context, user *User) (*User, error) {
	if user.Role == "" {
		return nil, fmt.Errorf("user role is required")
	}
	if user.BusinessUnitID != nil {
		if _, err := s.GetBusinessUnit(ctx, *user.BusinessUnitID); err != nil {
			return nil, err
		}
	}
	if user.TenantID != nil {
		if _, err := s.GetTenant(ctx, *user.TenantID); err != nil {
			return nil, err
		}
	}

	created := *user
	created.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (display_name, role, business_unit_id, tenant_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`, user.DisplayName, user.Role, nullableID(user.BusinessUnitID), nullableID(user.TenantID), created.CreatedAt).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &created, nil
}

// GetUser loads a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	var businessUnitID, tenantID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, role, business_unit_id, tenant_id, created_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.DisplayName, &user.Role, &businessUnitID, &tenantID, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if businessUnitID.Valid {
		user.BusinessUnitID = &businessUnitID.Int64
	}
	if tenantID.Valid {
		user.TenantID = &tenantID.Int64
	}
	return &user, nil
}

// DeleteUser removes a user.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// CreateMenuItem adds a menu item. A nil tenantID creates a global item.
func (s *Store) CreateMenuItem(ctx context.Context, item *MenuItem) (*MenuItem, error) {
	if item.Path == "" || item.Label == "" {
		return nil, fmt.Errorf("menu item path and label are required")
	}
	if item.TenantID != nil {
		if _, err := s.GetTenant(ctx, *item.TenantID); err != nil {
			return nil, err
		}
	}

	created := *item
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO menu_items (tenant_id, path, label, sort_order, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`, nullableID(item.TenantID), item.Path, item.Label, item.SortOrder, item.IsActive, now).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}
	return &created, nil
}

// UpdateMenuItem rewrites a menu item's mutable fields.
func (s *Store) UpdateMenuItem(ctx context.Context, item *MenuItem) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE menu_items
		SET path = $1, label = $2, sort_order = $3, is_active = $4, updated_at = $5
		WHERE id = $6
	`, item.Path, item.Label, item.SortOrder, item.IsActive, time.Now().UTC(), item.ID)
	if err != nil {
		return fmt.Errorf("failed to update menu item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("menu item %d: %w", item.ID, ErrNotFound)
	}
	return nil
}

// ListMenuItems returns menu items for a tenant, or global items when
// tenantID is nil, in display order.
func (s *Store) ListMenuItems(ctx context.Context, tenantID *int64) ([]MenuItem, error) {
	query := `
		SELECT id, tenant_id, path, label, sort_order, is_active
		FROM menu_items
		WHERE tenant_id IS NULL
		ORDER BY sort_order ASC, id ASC
	`
	args := []interface{}{}
	if tenantID != nil {
		query = strings.Replace(query, "tenant_id IS NULL", "tenant_id = $1", 1)
		args = append(args, *tenantID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	items := []MenuItem{}
	for rows.Next() {
		var item MenuItem
		var itemTenantID sql.NullInt64
		if err := rows.Scan(&item.ID, &itemTenantID, &item.Path, &item.Label, &item.SortOrder, &item.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		if itemTenantID.Valid {
			item.TenantID = &itemTenantID.Int64
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteMenuItem removes a menu item and its role flags, dependents first.
func (s *Store) DeleteMenuItem(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_menu_items WHERE menu_item_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete menu item flags: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("menu item %d: %w", id, ErrNotFound)
	}

	return tx.Commit()
}

// UpsertRoleMenuItem writes a role's visibility flags for a menu item.
func (s *Store) UpsertRoleMenuItem(ctx context.Context, flag *RoleMenuItem) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM menu_items WHERE id = $1)`, flag.MenuItemID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check menu item: %w", err)
	}
	if !exists {
		return fmt.Errorf("menu item %d: %w", flag.MenuItemID, ErrNotFound)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO role_menu_items (menu_item_id, role, is_visible, is_enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (menu_item_id, role) DO UPDATE SET
			is_visible = EXCLUDED.is_visible,
			is_enabled = EXCLUDED.is_enabled
	`, flag.MenuItemID, flag.Role, flag.IsVisible, flag.IsEnabled)
	if err != nil {
		return fmt.Errorf("failed to upsert role menu item: %w", err)
	}
	return nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// isUniqueViolation detects duplicate-key errors from both postgres and
// sqlite without importing driver error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
