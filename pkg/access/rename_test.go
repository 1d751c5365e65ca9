package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func seedLegacyPermission(t *testing.T, catalog *Catalog, resource, action string, grants map[Role]bool) int64 {
	t.Helper()
	var id int64
	err := catalog.db.QueryRow(`
		INSERT INTO permissions (name, resource, action) VALUES ($1, $2, $3) RETURNING id
	`, resource+":"+action, resource, action).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to seed permission %s:%s: %v", resource, action, err)
	}
	for role, granted := range grants {
		if _, err := catalog.db.Exec(`
			INSERT INTO role_permissions (role, permission_id, granted) VALUES ($1, $2, $3)
		`, string(role), id, granted); err != nil {
			t.Fatalf("Failed to seed grant: %v", err)
		}
	}
	return id
}

func TestRenamePermissions_MergesCollapsingDuplicates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	catalog := NewCatalog(db)

	// Parallel hyphenated and underscored rows, the observed drift defect.
	seedLegacyPermission(t, catalog, "business-units", "create", map[Role]bool{
		RoleSystemAdmin: true,
	})
	seedLegacyPermission(t, catalog, "business_units", "create", map[Role]bool{
		RoleSalesManager: false,
	})

	err := catalog.RenamePermissions(ctx,
		[]PermissionKey{
			{Resource: "business-units", Action: "create"},
			{Resource: "business_units", Action: "create"},
		},
		[]PermissionDef{
			{Resource: "business-units", Action: "create", Description: "Create business units"},
		},
	)
	// The new set spelled with a hyphen normalizes to business_units:create,
	// which equals one of the old verbatim keys. That overlap is a conflict.
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict for old/new overlap, got %v", err)
	}
}

func TestRenamePermissions_CollapseDistinctSpellings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	catalog := NewCatalog(db)

	seedLegacyPermission(t, catalog, "business-units", "read", map[Role]bool{
		RoleSystemAdmin:  true,
		RoleSalesManager: false,
	})
	seedLegacyPermission(t, catalog, "Business Units", "read", map[Role]bool{
		RoleSalesManager: true,
		RoleSalesRep:     false,
	})

	err := catalog.RenamePermissions(ctx,
		[]PermissionKey{
			{Resource: "business-units", Action: "read"},
			{Resource: "Business Units", Action: "read"},
		},
		[]PermissionDef{
			{Resource: "business_units", Action: "read", Description: "Read business units"},
		},
	)
	if err != nil {
		t.Fatalf("RenamePermissions failed: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM permissions`).Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 permission after collapse, got %d", count)
	}

	// granted=true wins when duplicate rows merge; explicit false carries
	// over only when no duplicate granted it.
	cases := []struct {
		role Role
		want bool
	}{
		{RoleSystemAdmin, true},
		{RoleSalesManager, true},
		{RoleSalesRep, false},
	}
	for _, tc := range cases {
		granted, err := catalog.IsGranted(ctx, tc.role, "business_units", "read")
		if err != nil {
			t.Fatalf("IsGranted(%s) failed: %v", tc.role, err)
		}
		if granted != tc.want {
			t.Errorf("IsGranted(%s) = %v, want %v", tc.role, granted, tc.want)
		}
	}

	// The explicit revocation row itself must survive as a row.
	var repRows int
	if err := db.QueryRow(`
		SELECT COUNT(*) FROM role_permissions WHERE role = $1 AND granted = FALSE
	`, string(RoleSalesRep)).Scan(&repRows); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if repRows != 1 {
		t.Errorf("Expected explicit revocation to be carried as a row, got %d", repRows)
	}
}

func TestRenamePermissions_RejectsUnmatchedOldKey(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	catalog := NewCatalog(db)
	seedLegacyPermission(t, catalog, "business-units", "read", map[Role]bool{RoleSystemAdmin: true})

	err := catalog.RenamePermissions(context.Background(),
		[]PermissionKey{{Resource: "business-units", Action: "read"}},
		[]PermissionDef{{Resource: "accounts", Action: "read"}},
	)

	var migErr *MigrationError
	if !errors.As(err, &migErr) {
		t.Fatalf("Expected MigrationError, got %v", err)
	}

	// Nothing may have changed.
	granted, gerr := catalog.IsGranted(context.Background(), RoleSystemAdmin, "business-units", "read")
	if gerr != nil {
		t.Fatalf("IsGranted failed: %v", gerr)
	}
	if !granted {
		t.Error("Expected original grant to be untouched after rejected rename")
	}
}

func TestRenamePermissions_MissingOldPermission(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	catalog := NewCatalog(db)

	err := catalog.RenamePermissions(context.Background(),
		[]PermissionKey{{Resource: "ghosts", Action: "read"}},
		[]PermissionDef{{Resource: "ghosts", Action: "read"}},
	)
	// Identical old/new identifier is an overlap conflict before lookup.
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	err = catalog.RenamePermissions(context.Background(),
		[]PermissionKey{{Resource: "ghost-records", Action: "read"}},
		[]PermissionDef{{Resource: "ghost_records", Action: "read"}},
	)
	var migErr *MigrationError
	if !errors.As(err, &migErr) {
		t.Fatalf("Expected MigrationError, got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected wrapped ErrNotFound, got %v", err)
	}
}

func TestRenamePermissions_CollisionWithExistingPermission(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	catalog := NewCatalog(db)

	seedLegacyPermission(t, catalog, "business-units", "read", map[Role]bool{RoleSystemAdmin: true})
	// Unrelated permission already occupying the target identifier.
	mustGrant(t, catalog, RoleSalesManager, "accounts", "read", true)

	err := catalog.RenamePermissions(ctx,
		[]PermissionKey{{Resource: "business-units", Action: "read"}},
		[]PermissionDef{
			{Resource: "business_units", Action: "read"},
			{Resource: "accounts", Action: "read"},
		},
	)
	// accounts:read in the new set has no old key feeding it and collides
	// with the existing row.
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	// The legacy row survived the rejected attempt.
	granted, gerr := catalog.IsGranted(ctx, RoleSystemAdmin, "business-units", "read")
	if gerr != nil {
		t.Fatalf("IsGranted failed: %v", gerr)
	}
	if !granted {
		t.Error("Expected legacy grant to be untouched")
	}
}

func TestRenamePermissions_EmptySetsRejected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	catalog := NewCatalog(db)
	var migErr *MigrationError

	err := catalog.RenamePermissions(context.Background(), nil,
		[]PermissionDef{{Resource: "deals", Action: "read"}})
	if !errors.As(err, &migErr) {
		t.Errorf("Expected MigrationError for empty old set, got %v", err)
	}

	err = catalog.RenamePermissions(context.Background(),
		[]PermissionKey{{Resource: "deals", Action: "read"}}, nil)
	if !errors.As(err, &migErr) {
		t.Errorf("Expected MigrationError for empty new set, got %v", err)
	}
}

func TestRenamePermissions_RollbackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	catalog := NewCatalog(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM permissions`).
		WithArgs("business-units", "read").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`SELECT role, granted FROM role_permissions`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"role", "granted"}).AddRow("SYSTEM_ADMIN", true))
	mock.ExpectQuery(`SELECT id FROM permissions`).
		WithArgs("business_units", "read").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`DELETE FROM role_permissions`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM permissions`).
		WithArgs(int64(7)).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err = catalog.RenamePermissions(context.Background(),
		[]PermissionKey{{Resource: "business-units", Action: "read"}},
		[]PermissionDef{{Resource: "business_units", Action: "read"}},
	)

	var migErr *MigrationError
	if !errors.As(err, &migErr) {
		t.Fatalf("Expected MigrationError, got %v", err)
	}
	if migErr.Step != "delete permissions" {
		t.Errorf("Expected failure at delete permissions step, got %q", migErr.Step)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet sqlmock expectations: %v", err)
	}
}
