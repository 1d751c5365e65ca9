// Package directory manages the scoping entities the access engine reads:
// tenants, business units, users, and the menu catalog.
package directory

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("record already exists")
)

// TenantKind distinguishes provisioned tenant categories.
type TenantKind string

const (
	TenantKindCompany TenantKind = "company"
	TenantKindAgency  TenantKind = "agency"
	TenantKindPartner TenantKind = "partner"
)

// Tenant is the root of a scoping hierarchy.
type Tenant struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Kind      TenantKind `json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
}

// BusinessUnit belongs to exactly one tenant.
type BusinessUnit struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User carries a role plus optional scoping links. The effective tenant is
// resolved at decision time, not read from these fields directly.
type User struct {
	ID             int64     `json:"id"`
	DisplayName    string    `json:"display_name"`
	Role           string    `json:"role"`
	BusinessUnitID *int64    `json:"business_unit_id,omitempty"`
	TenantID       *int64    `json:"tenant_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MenuItem is a navigation entry. A nil TenantID marks a global item.
type MenuItem struct {
	ID        int64  `json:"id"`
	TenantID  *int64 `json:"tenant_id,omitempty"`
	Path      string `json:"path"`
	Label     string `json:"label"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
}

// RoleMenuItem controls a role's view of a menu item.
type RoleMenuItem struct {
	MenuItemID int64  `json:"menu_item_id"`
	Role       string `json:"role"`
	IsVisible  bool   `json:"is_visible"`
	IsEnabled  bool   `json:"is_enabled"`
}
