package access

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE tenants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL DEFAULT 'company',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE business_units (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(tenant_id, name)
		);

		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			display_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			business_unit_id INTEGER,
			tenant_id INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			resource TEXT NOT NULL,
			action TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(resource, action)
		);

		CREATE TABLE role_permissions (
			role TEXT NOT NULL,
			permission_id INTEGER NOT NULL,
			granted INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (role, permission_id)
		);

		CREATE TABLE menu_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id INTEGER,
			path TEXT NOT NULL,
			label TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE role_menu_items (
			menu_item_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			is_visible INTEGER NOT NULL DEFAULT 0,
			is_enabled INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (menu_item_id, role)
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	return db
}

func insertTenant(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO tenants (name) VALUES ($1)`, name)
	if err != nil {
		t.Fatalf("Failed to insert tenant: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func insertBusinessUnit(t *testing.T, db *sql.DB, tenantID int64, name string) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO business_units (tenant_id, name) VALUES ($1, $2)`, tenantID, name)
	if err != nil {
		t.Fatalf("Failed to insert business unit: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func insertUser(t *testing.T, db *sql.DB, role string, businessUnitID, tenantID *int64) int64 {
	t.Helper()
	var buArg, tenantArg interface{}
	if businessUnitID != nil {
		buArg = *businessUnitID
	}
	if tenantID != nil {
		tenantArg = *tenantID
	}
	result, err := db.Exec(`INSERT INTO users (role, business_unit_id, tenant_id) VALUES ($1, $2, $3)`, role, buArg, tenantArg)
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func insertMenuItem(t *testing.T, db *sql.DB, tenantID *int64, path, label string, sortOrder int, isActive bool) int64 {
	t.Helper()
	var tenantArg interface{}
	if tenantID != nil {
		tenantArg = *tenantID
	}
	result, err := db.Exec(`
		INSERT INTO menu_items (tenant_id, path, label, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`, tenantArg, path, label, sortOrder, isActive)
	if err != nil {
		t.Fatalf("Failed to insert menu item: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func insertRoleMenuItem(t *testing.T, db *sql.DB, menuItemID int64, role string, visible, enabled bool) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO role_menu_items (menu_item_id, role, is_visible, is_enabled)
		VALUES ($1, $2, $3, $4)
	`, menuItemID, role, visible, enabled)
	if err != nil {
		t.Fatalf("Failed to insert role menu item: %v", err)
	}
}

func mustGrant(t *testing.T, catalog *Catalog, role Role, resource, action string, granted bool) {
	t.Helper()
	if err := catalog.Grant(context.Background(), role, resource, action, granted); err != nil {
		t.Fatalf("Grant(%s, %s, %s, %v) failed: %v", role, resource, action, granted, err)
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
