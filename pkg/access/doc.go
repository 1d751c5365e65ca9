// Package access implements role-based access resolution for the CRM:
// a normalized permission catalog keyed by resource:action identifiers,
// tenant scope resolution for users, tenant-scoped menu visibility, and
// an atomic catalog rename operation for repairing identifier drift.
//
// Operation permissions are role-global; only menu visibility is tenant
// scoped. All request-time decisions fail closed.
package access
