// Package audit records the authorization trail: grants, revocations,
// catalog renames and denied decisions. Explicit granted=false rows exist
// precisely so revocations stay auditable, and this package is where they
// end up visible.
package audit

import (
	"context"
	"time"
)

// Logger is the sink for audit events. Implementations must be safe for
// concurrent use; callers on decision paths ignore returned errors so a
// broken sink can never turn into an authorization failure.
type Logger interface {
	Log(ctx context.Context, event *Event) error
	Close() error
}

// NopLogger discards all events.
type NopLogger struct{}

// NewNopLogger returns a logger that drops everything.
func NewNopLogger() *NopLogger { return &NopLogger{} }

// Log implements Logger.
func (*NopLogger) Log(context.Context, *Event) error { return nil }

// Close implements Logger.
func (*NopLogger) Close() error { return nil }

// stamp fills defaulted fields on an event before it is persisted.
func stamp(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Status == "" {
		event.Status = EventStatusSuccess
	}
}
