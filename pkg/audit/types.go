package audit

import (
	"encoding/json"
	"time"
)

// EventType categorizes an audit event.
type EventType string

const (
	// Catalog mutations
	EventTypeGrant  EventType = "authz.grant"
	EventTypeRevoke EventType = "authz.revoke"
	EventTypeRename EventType = "authz.rename"

	// Decision outcomes worth a trail
	EventTypeCheckDenied    EventType = "authz.check_denied"
	EventTypeMenuUnresolved EventType = "authz.menu_unresolved"

	// Directory administration
	EventTypeTenantCreate EventType = "directory.tenant_create"
	EventTypeTenantDelete EventType = "directory.tenant_delete"
	EventTypeSeed         EventType = "directory.seed"

	// Housekeeping
	EventTypeRetentionSweep EventType = "audit.retention_sweep"
)

// EventStatus is the outcome recorded with an event.
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is a single audit log entry.
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor and subject
	UserID *int64 `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`

	// Authorization context
	Permission string `json:"permission,omitempty"`
	TenantID   *int64 `json:"tenant_id,omitempty"`

	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON serializes the event.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SearchFilter narrows an audit query.
type SearchFilter struct {
	StartTime  *time.Time
	EndTime    *time.Time
	UserID     *int64
	Role       string
	EventTypes []EventType
	Status     *EventStatus
	Permission string

	Limit  int
	Offset int
}
