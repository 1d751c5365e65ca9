package access

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// renamedPermission is the working state for one new definition during a
// rename: the canonical identifier plus the grants replayed onto it.
type renamedPermission struct {
	resource    string
	action      string
	name        string
	description string
	grants      map[Role]bool
}

// RenamePermissions atomically replaces the permissions matching
// oldIdentifiers with newDefs, carrying every grant across the rename.
//
// Old identifiers are matched against rows verbatim, as stored; new
// definitions are normalized before insertion. Correspondence between old
// and new is by normalized identifier: each old key must normalize to the
// identifier of exactly one new definition, so a rename can never silently
// drop a role's access. When several legacy rows collapse onto one canonical
// identifier (the hyphen/underscore duplicate case), their grants merge with
// granted=true winning; explicit revocations are carried over otherwise.
//
// The whole operation runs in a single transaction. Overlapping old/new sets
// and collisions with unrelated existing permissions are rejected with
// ErrConflict before any row changes; any later failure rolls back and is
// reported as a MigrationError. A concurrent reader observes either the
// fully-old or the fully-new catalog, never an intermediate state.
func (c *Catalog) RenamePermissions(ctx context.Context, oldIdentifiers []PermissionKey, newDefs []PermissionDef) error {
	if len(oldIdentifiers) == 0 {
		return &MigrationError{Step: "validate", Err: fmt.Errorf("no old identifiers given")}
	}
	if len(newDefs) == 0 {
		return &MigrationError{Step: "validate", Err: fmt.Errorf("no new definitions given")}
	}

	renamed := make(map[string]*renamedPermission, len(newDefs))
	order := make([]string, 0, len(newDefs))
	for _, def := range newDefs {
		res, err := NormalizeResource(def.Resource)
		if err != nil {
			return err
		}
		act, err := NormalizeAction(def.Action)
		if err != nil {
			return err
		}
		name := res + delimiter + act
		if _, dup := renamed[name]; dup {
			return fmt.Errorf("%w: duplicate new definition %s", ErrConflict, name)
		}
		renamed[name] = &renamedPermission{
			resource:    res,
			action:      act,
			name:        name,
			description: def.Description,
			grants:      make(map[Role]bool),
		}
		order = append(order, name)
	}

	// Map each old key to its canonical successor before touching any rows.
	oldTargets := make(map[PermissionKey]*renamedPermission, len(oldIdentifiers))
	for _, key := range oldIdentifiers {
		for name := range renamed {
			if key.String() == name {
				return fmt.Errorf("%w: identifier %s appears in both old and new sets", ErrConflict, name)
			}
		}
		canonical, err := Normalize(key.Resource, key.Action)
		if err != nil {
			return err
		}
		target, ok := renamed[canonical]
		if !ok {
			return &MigrationError{Step: "validate",
				Err: fmt.Errorf("old identifier %s has no corresponding new definition (would drop grants)", key)}
		}
		oldTargets[key] = target
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return &MigrationError{Step: "begin", Err: err}
	}
	defer tx.Rollback()

	// Locate the old rows and snapshot their grants.
	oldIDs := make([]int64, 0, len(oldIdentifiers))
	oldIDSet := make(map[int64]bool, len(oldIdentifiers))
	for _, key := range oldIdentifiers {
		var id int64
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM permissions WHERE resource = $1 AND action = $2
		`, key.Resource, key.Action).Scan(&id)
		if err == sql.ErrNoRows {
			return &MigrationError{Step: "lookup",
				Err: fmt.Errorf("%w: permission %s", ErrNotFound, key)}
		}
		if err != nil {
			return &MigrationError{Step: "lookup", Err: err}
		}
		oldIDs = append(oldIDs, id)
		oldIDSet[id] = true

		rows, err := tx.QueryContext(ctx, `
			SELECT role, granted FROM role_permissions WHERE permission_id = $1
		`, id)
		if err != nil {
			return &MigrationError{Step: "snapshot", Err: err}
		}
		target := oldTargets[key]
		for rows.Next() {
			var role string
			var granted bool
			if err := rows.Scan(&role, &granted); err != nil {
				rows.Close()
				return &MigrationError{Step: "snapshot", Err: err}
			}
			target.grants[Role(role)] = target.grants[Role(role)] || granted
		}
		if err := rows.Close(); err != nil {
			return &MigrationError{Step: "snapshot", Err: err}
		}
	}

	// A new identifier must not collide with a permission outside the old set.
	for _, name := range order {
		p := renamed[name]
		var existingID int64
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM permissions WHERE resource = $1 AND action = $2
		`, p.resource, p.action).Scan(&existingID)
		if err != nil && err != sql.ErrNoRows {
			return &MigrationError{Step: "collision check", Err: err}
		}
		if err == nil && !oldIDSet[existingID] {
			return fmt.Errorf("%w: %s already exists in the catalog", ErrConflict, name)
		}
	}

	// Referential order: grants first, then the permissions themselves.
	placeholders := make([]string, len(oldIDs))
	args := make([]interface{}, len(oldIDs))
	for i, id := range oldIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	in := strings.Join(placeholders, ", ")

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM role_permissions WHERE permission_id IN (%s)", in), args...); err != nil {
		return &MigrationError{Step: "delete grants", Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM permissions WHERE id IN (%s)", in), args...); err != nil {
		return &MigrationError{Step: "delete permissions", Err: err}
	}

	now := time.Now().UTC()
	for _, name := range order {
		p := renamed[name]
		var newID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO permissions (name, resource, action, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING id
		`, p.name, p.resource, p.action, p.description, now).Scan(&newID)
		if err != nil {
			return &MigrationError{Step: "create permissions", Err: err}
		}
		for role, granted := range p.grants {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO role_permissions (role, permission_id, granted, updated_at)
				VALUES ($1, $2, $3, $4)
			`, string(role), newID, granted, now); err != nil {
				return &MigrationError{Step: "replay grants", Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &MigrationError{Step: "commit", Err: err}
	}
	return nil
}
