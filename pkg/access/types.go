package access

import (
	"fmt"
	"strings"
	"time"
)

// Role is the fixed tag on a user that determines its grant set. Roles are
// flat: no role inherits another's grants.
type Role string

const (
	RoleSystemAdmin    Role = "SYSTEM_ADMIN"
	RoleSalesManager   Role = "SALES_MANAGER"
	RoleSalesRep       Role = "SALES_REP"
	RoleAccountManager Role = "ACCOUNT_MANAGER"
	RoleSupportAgent   Role = "SUPPORT_AGENT"
)

// Roles returns all canonical roles.
func Roles() []Role {
	return []Role{
		RoleSystemAdmin,
		RoleSalesManager,
		RoleSalesRep,
		RoleAccountManager,
		RoleSupportAgent,
	}
}

// Valid reports whether r is one of the canonical roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystemAdmin, RoleSalesManager, RoleSalesRep, RoleAccountManager, RoleSupportAgent:
		return true
	}
	return false
}

// ParseRole maps a role tag onto its canonical form. Legacy data carries
// free-form spellings ("sales manager", "sales-manager", "salesManager");
// all of them collapse to the canonical uppercase form. Unknown tags return
// ErrUnknownRole.
func ParseRole(s string) (Role, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	r := Role(normalized)
	if r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Permission is a canonical resource:action capability.
// Invariant: Name == Resource + ":" + Action under the canonical delimiter,
// and (Resource, Action) is unique in the catalog.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Grant is a (role, permission) row. An explicit Granted=false row is a
// deliberate revocation and is distinct, for audit purposes, from the row
// being absent; both deny.
type Grant struct {
	Role         Role      `json:"role"`
	PermissionID int64     `json:"permission_id"`
	Granted      bool      `json:"granted"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PermissionKey identifies a permission by its stored resource and action,
// verbatim. Rename operations match keys against rows as persisted, which is
// what lets them repair legacy un-normalized identifiers.
type PermissionKey struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

func (k PermissionKey) String() string {
	return k.Resource + delimiter + k.Action
}

// PermissionDef describes a permission to create during a rename.
type PermissionDef struct {
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// User is the engine's view of a user record: the role plus the two tenant
// linkage fields, either of which may be stale or missing in legacy data.
type User struct {
	ID             int64  `json:"id"`
	Role           Role   `json:"role"`
	BusinessUnitID *int64 `json:"business_unit_id,omitempty"`
	TenantID       *int64 `json:"tenant_id,omitempty"`
}

// ScopeKind discriminates the result of tenant scope resolution.
type ScopeKind string

const (
	// ScopeGlobal is the tenant-independent scope reserved for SYSTEM_ADMIN.
	ScopeGlobal ScopeKind = "global"
	// ScopeTenant binds the user to a single tenant.
	ScopeTenant ScopeKind = "tenant"
	// ScopeUnresolved means no tenant could be determined. All decisions for
	// an unresolved user fail closed.
	ScopeUnresolved ScopeKind = "unresolved"
)

// Scope is the resolved tenant context for a user. TenantID is meaningful
// only when Kind is ScopeTenant.
type Scope struct {
	Kind     ScopeKind `json:"kind"`
	TenantID int64     `json:"tenant_id,omitempty"`
}

// GlobalScope returns the tenant-independent scope.
func GlobalScope() Scope { return Scope{Kind: ScopeGlobal} }

// TenantScope returns a scope bound to the given tenant.
func TenantScope(tenantID int64) Scope { return Scope{Kind: ScopeTenant, TenantID: tenantID} }

// UnresolvedScope returns the fail-closed scope.
func UnresolvedScope() Scope { return Scope{Kind: ScopeUnresolved} }

// MenuItem is a navigation entry. A nil TenantID marks a global item that is
// only ever shown in the global scope.
type MenuItem struct {
	ID        int64  `json:"id"`
	TenantID  *int64 `json:"tenant_id,omitempty"`
	Path      string `json:"path"`
	Label     string `json:"label"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
}

// RoleMenuItem holds the per-role visibility flags for a menu item. Both
// flags must be true for the item to appear in a user's navigation.
type RoleMenuItem struct {
	MenuItemID int64 `json:"menu_item_id"`
	Role       Role  `json:"role"`
	IsVisible  bool  `json:"is_visible"`
	IsEnabled  bool  `json:"is_enabled"`
}

// MenuEntry is the facade's navigation result element.
type MenuEntry struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}
