package access

import (
	"context"
	"fmt"
)

// GrantSpec is one entry in the baseline grant set.
type GrantSpec struct {
	Role     Role
	Resource string
	Action   string
	Granted  bool
}

// DefaultGrants returns the baseline grant set for a fresh installation.
// SYSTEM_ADMIN additionally holds the administrative surface (permission and
// menu management, tenant provisioning); the explicit revocations at the end
// document capabilities that were deliberately withdrawn from SALES_REP and
// must stay visible in the audit trail.
func DefaultGrants() []GrantSpec {
	return []GrantSpec{
		// System administration
		{RoleSystemAdmin, "tenants", "create", true},
		{RoleSystemAdmin, "tenants", "read", true},
		{RoleSystemAdmin, "tenants", "update", true},
		{RoleSystemAdmin, "tenants", "delete", true},
		{RoleSystemAdmin, "business_units", "create", true},
		{RoleSystemAdmin, "business_units", "read", true},
		{RoleSystemAdmin, "business_units", "update", true},
		{RoleSystemAdmin, "business_units", "delete", true},
		{RoleSystemAdmin, "users", "create", true},
		{RoleSystemAdmin, "users", "read", true},
		{RoleSystemAdmin, "users", "update", true},
		{RoleSystemAdmin, "users", "delete", true},
		{RoleSystemAdmin, "permissions", "read", true},
		{RoleSystemAdmin, "permissions", "manage", true},
		{RoleSystemAdmin, "menu_items", "manage", true},
		{RoleSystemAdmin, "audit_events", "read", true},

		// Sales management
		{RoleSalesManager, "customers", "create", true},
		{RoleSalesManager, "customers", "read", true},
		{RoleSalesManager, "customers", "update", true},
		{RoleSalesManager, "customers", "delete", true},
		{RoleSalesManager, "deals", "create", true},
		{RoleSalesManager, "deals", "read", true},
		{RoleSalesManager, "deals", "update", true},
		{RoleSalesManager, "deals", "delete", true},
		{RoleSalesManager, "reports", "read", true},
		{RoleSalesManager, "business_units", "read", true},

		// Sales reps work deals and customers but cannot delete them.
		{RoleSalesRep, "customers", "create", true},
		{RoleSalesRep, "customers", "read", true},
		{RoleSalesRep, "customers", "update", true},
		{RoleSalesRep, "deals", "create", true},
		{RoleSalesRep, "deals", "read", true},
		{RoleSalesRep, "deals", "update", true},

		// Account management
		{RoleAccountManager, "accounts", "create", true},
		{RoleAccountManager, "accounts", "read", true},
		{RoleAccountManager, "accounts", "update", true},
		{RoleAccountManager, "customers", "read", true},
		{RoleAccountManager, "reports", "read", true},

		// Support
		{RoleSupportAgent, "customers", "read", true},
		{RoleSupportAgent, "tasks", "create", true},
		{RoleSupportAgent, "tasks", "read", true},
		{RoleSupportAgent, "tasks", "update", true},

		// Explicit revocations, recorded as granted=false rows.
		{RoleSalesRep, "customers", "delete", false},
		{RoleSalesRep, "deals", "delete", false},
	}
}

// SeedDefaultGrants applies the baseline grant set through the catalog.
// Grant is idempotent, so reseeding an installation is safe.
func SeedDefaultGrants(ctx context.Context, catalog *Catalog) error {
	for _, spec := range DefaultGrants() {
		if err := catalog.Grant(ctx, spec.Role, spec.Resource, spec.Action, spec.Granted); err != nil {
			return fmt.Errorf("failed to seed grant %s on %s:%s: %w", spec.Role, spec.Resource, spec.Action, err)
		}
	}
	return nil
}
