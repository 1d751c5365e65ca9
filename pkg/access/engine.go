package access

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akivmoovex/fuelx-crm-sub001/pkg/audit"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/observability"
)

// Engine is the single entry point for access decisions. It combines the
// permission catalog, the tenant scope resolver, and the menu resolver
// behind two request-time operations, CanPerform and VisibleMenu, plus the
// administrative catalog operations.
//
// Request-time operations are fail-closed: any lookup or store failure is
// reported as a denial or an empty menu, never as an implicit grant.
type Engine struct {
	db      *sql.DB
	catalog *Catalog
	scopes  *ScopeResolver
	menus   *MenuResolver
	auditor audit.Logger
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Options configures optional Engine collaborators.
type Options struct {
	Audit   audit.Logger
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// NewEngine creates an Engine on top of the given database handle.
func NewEngine(db *sql.DB, opts Options) *Engine {
	if opts.Audit == nil {
		opts.Audit = &audit.NopLogger{}
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Engine{
		db:      db,
		catalog: NewCatalog(db),
		scopes:  NewScopeResolver(db),
		menus:   NewMenuResolver(db),
		auditor: opts.Audit,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Catalog exposes the underlying permission catalog for administrative tooling.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// lookupUser loads a user record. Role values are parsed tolerantly so that
// legacy spellings in the users table still resolve to a known role.
func (e *Engine) lookupUser(ctx context.Context, userID int64) (*User, error) {
	var user User
	var rawRole string
	var businessUnitID, tenantID sql.NullInt64

	err := e.db.QueryRowContext(ctx, `
		SELECT id, role, business_unit_id, tenant_id
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &rawRole, &businessUnitID, &tenantID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	role, err := ParseRole(rawRole)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	user.Role = role

	if businessUnitID.Valid {
		user.BusinessUnitID = &businessUnitID.Int64
	}
	if tenantID.Valid {
		user.TenantID = &tenantID.Int64
	}
	return &user, nil
}

// CanPerform reports whether the user's role is granted resource:action.
// Grants are role-global; tenant scope does not gate operation permissions,
// only menu visibility. Failures deny.
func (e *Engine) CanPerform(ctx context.Context, userID int64, resource, action string) bool {
	user, err := e.lookupUser(ctx, userID)
	if err != nil {
		e.denied(ctx, userID, "", resource, action, err)
		return false
	}

	allowed, err := e.catalog.IsGranted(ctx, user.Role, resource, action)
	if err != nil {
		e.denied(ctx, userID, string(user.Role), resource, action, err)
		return false
	}

	if e.metrics != nil {
		res, rerr := NormalizeResource(resource)
		act, aerr := NormalizeAction(action)
		if rerr == nil && aerr == nil {
			e.metrics.RecordDecision(res, act, allowed)
		}
	}

	if !allowed {
		e.auditDenied(ctx, userID, string(user.Role), resource, action, "not granted")
	}
	return allowed
}

// VisibleMenu returns the menu entries the user may see, in display order.
// An unresolvable tenant scope or a store failure yields an empty menu.
func (e *Engine) VisibleMenu(ctx context.Context, userID int64) []MenuEntry {
	user, err := e.lookupUser(ctx, userID)
	if err != nil {
		e.logger.WithError(err).WithField("user_id", userID).Warn("menu resolution failed")
		return []MenuEntry{}
	}

	scope, _ := e.scopes.Resolve(ctx, *user)
	if e.metrics != nil {
		e.metrics.RecordMenuResolution(string(scope.Kind))
	}
	if scope.Kind == ScopeUnresolved {
		e.auditor.Log(ctx, &audit.Event{
			EventType: audit.EventTypeMenuUnresolved,
			Status:    audit.EventStatusDenied,
			UserID:    &userID,
			Role:      string(user.Role),
			Message:   "tenant scope unresolved, menu empty",
		})
		return []MenuEntry{}
	}

	items, err := e.menus.VisibleMenu(ctx, *user)
	if err != nil {
		e.logger.WithError(err).WithField("user_id", userID).Warn("menu resolution failed")
		return []MenuEntry{}
	}

	entries := make([]MenuEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, MenuEntry{Path: item.Path, Label: item.Label})
	}
	return entries
}

// Grant writes a role grant through the catalog and records an audit event.
func (e *Engine) Grant(ctx context.Context, role Role, resource, action string, granted bool) error {
	err := e.catalog.Grant(ctx, role, resource, action, granted)
	if err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.RecordGrant(string(role), granted)
	}

	eventType := audit.EventTypeGrant
	if !granted {
		eventType = audit.EventTypeRevoke
	}
	name, _ := Normalize(resource, action)
	e.auditor.Log(ctx, &audit.Event{
		EventType:  eventType,
		Status:     audit.EventStatusSuccess,
		Role:       string(role),
		Permission: name,
	})
	return nil
}

// EffectivePermissions lists the permission names a role holds.
func (e *Engine) EffectivePermissions(ctx context.Context, role Role) ([]string, error) {
	return e.catalog.EffectivePermissions(ctx, role)
}

// RenamePermissions atomically renames catalog permissions, preserving
// role grants across the rename.
func (e *Engine) RenamePermissions(ctx context.Context, oldIdentifiers []PermissionKey, newDefs []PermissionDef) error {
	err := e.catalog.RenamePermissions(ctx, oldIdentifiers, newDefs)
	if e.metrics != nil {
		e.metrics.RecordRename(err)
	}

	status := audit.EventStatusSuccess
	message := fmt.Sprintf("renamed %d permissions to %d definitions", len(oldIdentifiers), len(newDefs))
	if err != nil {
		status = audit.EventStatusFailure
		message = err.Error()
	}
	e.auditor.Log(ctx, &audit.Event{
		EventType: audit.EventTypeRename,
		Status:    status,
		Message:   message,
	})
	return err
}

func (e *Engine) denied(ctx context.Context, userID int64, role, resource, action string, err error) {
	e.logger.WithError(err).WithFields(map[string]interface{}{
		"user_id":  userID,
		"resource": resource,
		"action":   action,
	}).Warn("permission check failed, denying")
	if e.metrics != nil {
		e.metrics.RecordDecision(resource, action, false)
	}
	e.auditDenied(ctx, userID, role, resource, action, err.Error())
}

func (e *Engine) auditDenied(ctx context.Context, userID int64, role, resource, action, reason string) {
	name := resource + delimiter + action
	e.auditor.Log(ctx, &audit.Event{
		EventType:  audit.EventTypeCheckDenied,
		Status:     audit.EventStatusDenied,
		UserID:     &userID,
		Role:       role,
		Permission: name,
		Message:    reason,
	})
}
