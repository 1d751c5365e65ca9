package access

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier is returned when a resource or action cannot be
	// normalized into a canonical permission identifier.
	ErrInvalidIdentifier = errors.New("invalid permission identifier")

	// ErrNotFound is returned by administrative operations when a referenced
	// record does not exist. Decision paths never surface it; they fail closed.
	ErrNotFound = errors.New("not found")

	// ErrUnknownRole is returned when a role tag is not one of the canonical
	// roles and cannot be mapped from a legacy spelling.
	ErrUnknownRole = errors.New("unknown role")

	// ErrConflict is returned when a rename would collide with an existing
	// permission, or when the old and new identifier sets overlap.
	ErrConflict = errors.New("permission identifier conflict")
)

// MigrationError reports a failed catalog rename. The transaction has been
// rolled back by the time the caller sees this error; no partial state is
// persisted.
type MigrationError struct {
	Step string
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("permission migration failed at %s: %v", e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}
