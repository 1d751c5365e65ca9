package access

import (
	"context"
	"testing"
)

func newTestEngine(t *testing.T) (*Engine, func()) {
	t.Helper()
	db := setupTestDB(t)
	engine := NewEngine(db, Options{})
	return engine, func() { db.Close() }
}

func TestEngine_SalesManagerSeesTenantDealsMenu(t *testing.T) {
	engine, cleanup := newTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	tenantID := insertTenant(t, engine.db, "acme")
	unitID := insertBusinessUnit(t, engine.db, tenantID, "north")
	userID := insertUser(t, engine.db, "SALES_MANAGER", &unitID, nil)

	dealsID := insertMenuItem(t, engine.db, &tenantID, "/deals", "Deals", 10, true)
	insertRoleMenuItem(t, engine.db, dealsID, "SALES_MANAGER", true, true)

	if err := engine.Grant(ctx, RoleSalesManager, "deals", "read", true); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	if !engine.CanPerform(ctx, userID, "deals", "read") {
		t.Error("Expected SALES_MANAGER to perform deals:read")
	}

	menu := engine.VisibleMenu(ctx, userID)
	if len(menu) != 1 {
		t.Fatalf("Expected 1 menu entry, got %d", len(menu))
	}
	if menu[0].Path != "/deals" || menu[0].Label != "Deals" {
		t.Errorf("Expected /deals entry, got %+v", menu[0])
	}
}

func TestEngine_UnresolvedScopeEmptyMenuButGrantsUnaffected(t *testing.T) {
	engine, cleanup := newTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	// User with neither a business unit nor a direct tenant.
	userID := insertUser(t, engine.db, "SALES_REP", nil, nil)

	if err := engine.Grant(ctx, RoleSalesRep, "customers", "read", true); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	// Operation permissions are role-global; the broken scope does not
	// revoke them.
	if !engine.CanPerform(ctx, userID, "customers", "read") {
		t.Error("Expected role-global grant to hold despite unresolved scope")
	}

	menu := engine.VisibleMenu(ctx, userID)
	if menu == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(menu) != 0 {
		t.Errorf("Expected empty menu for unresolved scope, got %d entries", len(menu))
	}
}

func TestEngine_RenamePreservesGrantAcrossDriftRepair(t *testing.T) {
	engine, cleanup := newTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	// Seed a legacy hyphenated permission row directly, bypassing the
	// normalizer the way the drifted source data did.
	var permID int64
	err := engine.db.QueryRowContext(ctx, `
		INSERT INTO permissions (name, resource, action) VALUES ($1, $2, $3) RETURNING id
	`, "business-units:read", "business-units", "read").Scan(&permID)
	if err != nil {
		t.Fatalf("Failed to seed legacy permission: %v", err)
	}
	if _, err := engine.db.ExecContext(ctx, `
		INSERT INTO role_permissions (role, permission_id, granted) VALUES ($1, $2, $3)
	`, "SYSTEM_ADMIN", permID, true); err != nil {
		t.Fatalf("Failed to seed legacy grant: %v", err)
	}

	err = engine.RenamePermissions(ctx,
		[]PermissionKey{{Resource: "business-units", Action: "read"}},
		[]PermissionDef{{Resource: "business_units", Action: "read", Description: "Read business units"}},
	)
	if err != nil {
		t.Fatalf("RenamePermissions failed: %v", err)
	}

	// The old spelling is gone.
	var count int
	if err := engine.db.QueryRow(`SELECT COUNT(*) FROM permissions WHERE resource = $1`, "business-units").Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected legacy permission to be deleted, found %d rows", count)
	}

	// The grant carried over to the canonical spelling.
	granted, err := engine.Catalog().IsGranted(ctx, RoleSystemAdmin, "business_units", "read")
	if err != nil {
		t.Fatalf("IsGranted failed: %v", err)
	}
	if !granted {
		t.Error("Expected SYSTEM_ADMIN grant to survive the rename")
	}
}

func TestEngine_CanPerformFailClosed(t *testing.T) {
	engine, cleanup := newTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	// Unknown user denies.
	if engine.CanPerform(ctx, 42, "deals", "read") {
		t.Error("Expected denial for unknown user")
	}

	// Unparseable role on the record denies.
	userID := insertUser(t, engine.db, "WIZARD", nil, nil)
	if engine.CanPerform(ctx, userID, "deals", "read") {
		t.Error("Expected denial for unknown role value")
	}

	// Invalid identifier denies rather than erroring.
	validUserID := insertUser(t, engine.db, "SALES_REP", nil, nil)
	if engine.CanPerform(ctx, validUserID, "", "read") {
		t.Error("Expected denial for invalid identifier")
	}
}

func TestEngine_VisibleMenuUnknownUserIsEmpty(t *testing.T) {
	engine, cleanup := newTestEngine(t)
	defer cleanup()

	menu := engine.VisibleMenu(context.Background(), 42)
	if menu == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(menu) != 0 {
		t.Errorf("Expected empty menu for unknown user, got %d entries", len(menu))
	}
}

func TestEngine_GrantRevokeReflectedImmediately(t *testing.T) {
	engine, cleanup := newTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	userID := insertUser(t, engine.db, "SALES_REP", nil, nil)

	if err := engine.Grant(ctx, RoleSalesRep, "deals", "update", true); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if !engine.CanPerform(ctx, userID, "deals", "update") {
		t.Error("Expected grant to take effect")
	}

	if err := engine.Grant(ctx, RoleSalesRep, "deals", "update", false); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if engine.CanPerform(ctx, userID, "deals", "update") {
		t.Error("Expected revocation to be reflected on the next check")
	}
}
