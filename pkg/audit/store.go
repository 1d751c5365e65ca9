package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Store persists audit events in the same database as the catalog.
type Store struct {
	db *sql.DB
}

// NewStore creates an audit store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS authz_audit_events (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMP NOT NULL,
			event_type VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL,
			user_id BIGINT,
			role VARCHAR(50),
			permission VARCHAR(255),
			tenant_id BIGINT,
			message TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}
	return nil
}

// Insert writes one event and sets its ID.
func (s *Store) Insert(ctx context.Context, event *Event) error {
	stamp(event)

	metadata := "{}"
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
		metadata = string(raw)
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO authz_audit_events (ts, event_type, status, user_id, role, permission, tenant_id, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		event.Timestamp,
		string(event.EventType),
		string(event.Status),
		event.UserID,
		event.Role,
		event.Permission,
		event.TenantID,
		event.Message,
		metadata,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Search returns events matching the filter, newest first.
func (s *Store) Search(ctx context.Context, filter SearchFilter) ([]Event, error) {
	query := `
		SELECT id, ts, event_type, status, user_id, role, permission, tenant_id, message, metadata
		FROM authz_audit_events
		WHERE 1=1
	`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StartTime != nil {
		query += " AND ts >= " + arg(*filter.StartTime)
	}
	if filter.EndTime != nil {
		query += " AND ts <= " + arg(*filter.EndTime)
	}
	if filter.UserID != nil {
		query += " AND user_id = " + arg(*filter.UserID)
	}
	if filter.Role != "" {
		query += " AND role = " + arg(filter.Role)
	}
	if filter.Permission != "" {
		query += " AND permission = " + arg(filter.Permission)
	}
	if filter.Status != nil {
		query += " AND status = " + arg(string(*filter.Status))
	}
	if len(filter.EventTypes) > 0 {
		placeholders := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			placeholders[i] = arg(string(et))
		}
		query += " AND event_type IN (" + strings.Join(placeholders, ", ") + ")"
	}

	query += " ORDER BY ts DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var userID, tenantID sql.NullInt64
		var metadata string
		if err := rows.Scan(
			&event.ID, &event.Timestamp, &event.EventType, &event.Status,
			&userID, &event.Role, &event.Permission, &tenantID,
			&event.Message, &metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			event.UserID = &id
		}
		if tenantID.Valid {
			id := tenantID.Int64
			event.TenantID = &id
		}
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &event.Metadata); err != nil {
				event.Metadata = nil
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteOlderThan removes events before the cutoff and reports how many were
// deleted. Used by the retention sweep.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM authz_audit_events WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted audit events: %w", err)
	}
	return n, nil
}

// DBLogger is a Logger writing through a Store.
type DBLogger struct {
	store *Store
}

// NewDBLogger creates a database-backed audit logger and ensures the schema
// exists.
func NewDBLogger(ctx context.Context, db *sql.DB) (*DBLogger, error) {
	store := NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return &DBLogger{store: store}, nil
}

// Log implements Logger.
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	return l.store.Insert(ctx, event)
}

// Close implements Logger. The store borrows the shared database handle, so
// there is nothing to release here.
func (l *DBLogger) Close() error { return nil }

// Store exposes the underlying store for search and retention.
func (l *DBLogger) Store() *Store { return l.store }
