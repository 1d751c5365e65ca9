package directory

import (
	"context"
	"fmt"
)

// MenuSeed describes one menu item plus its role flags for seeding.
type MenuSeed struct {
	TenantName string // empty means global item
	Path       string
	Label      string
	SortOrder  int
	IsActive   bool
	Roles      []RoleMenuSeed
}

// RoleMenuSeed is a role's flags on a seeded item.
type RoleMenuSeed struct {
	Role      string
	IsVisible bool
	IsEnabled bool
}

// DefaultMenu returns the baseline navigation shipped with a fresh install.
func DefaultMenu() []MenuSeed {
	allVisible := func(roles ...string) []RoleMenuSeed {
		seeds := make([]RoleMenuSeed, 0, len(roles))
		for _, role := range roles {
			seeds = append(seeds, RoleMenuSeed{Role: role, IsVisible: true, IsEnabled: true})
		}
		return seeds
	}

	return []MenuSeed{
		{Path: "/admin/tenants", Label: "Tenants", SortOrder: 10, IsActive: true,
			Roles: allVisible("SYSTEM_ADMIN")},
		{Path: "/admin/users", Label: "Users", SortOrder: 20, IsActive: true,
			Roles: allVisible("SYSTEM_ADMIN")},
		{Path: "/admin/permissions", Label: "Permissions", SortOrder: 30, IsActive: true,
			Roles: allVisible("SYSTEM_ADMIN")},
	}
}

// SeedMenu creates the given menu items with their role flags. Existing
// items with the same path under the same scope are left untouched.
func (s *Store) SeedMenu(ctx context.Context, seeds []MenuSeed) error {
	tenantIDs := map[string]int64{}
	tenants, err := s.ListTenants(ctx)
	if err != nil {
		return err
	}
	for _, tenant := range tenants {
		tenantIDs[tenant.Name] = tenant.ID
	}

	for _, seed := range seeds {
		var tenantID *int64
		if seed.TenantName != "" {
			id, ok := tenantIDs[seed.TenantName]
			if !ok {
				return fmt.Errorf("seed menu item %q: tenant %q: %w", seed.Path, seed.TenantName, ErrNotFound)
			}
			tenantID = &id
		}

		existing, err := s.ListMenuItems(ctx, tenantID)
		if err != nil {
			return err
		}
		var itemID int64
		for _, item := range existing {
			if item.Path == seed.Path {
				itemID = item.ID
				break
			}
		}
		if itemID == 0 {
			created, err := s.CreateMenuItem(ctx, &MenuItem{
				TenantID:  tenantID,
				Path:      seed.Path,
				Label:     seed.Label,
				SortOrder: seed.SortOrder,
				IsActive:  seed.IsActive,
			})
			if err != nil {
				return err
			}
			itemID = created.ID
		}

		for _, roleSeed := range seed.Roles {
			err := s.UpsertRoleMenuItem(ctx, &RoleMenuItem{
				MenuItemID: itemID,
				Role:       roleSeed.Role,
				IsVisible:  roleSeed.IsVisible,
				IsEnabled:  roleSeed.IsEnabled,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
