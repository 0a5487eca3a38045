package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore appends audit events to an insert-only table. No updates, no
// deletes; retention is handled by operators outside the application.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(timestamp, action, actor_id, actor_role, target_id, target_type, detail, request_id, client_ip, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, event.Timestamp, event.Action, event.ActorID, event.ActorRole,
		event.TargetID, event.TargetType, event.Detail, event.RequestID, event.ClientIP, event.Device)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByActor(ctx context.Context, actorID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, action, actor_id, actor_role, target_id, target_type, detail, request_id, client_ip, device
		FROM audit_events
		WHERE actor_id = $1
		ORDER BY timestamp
	`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Timestamp, &e.Action, &e.ActorID, &e.ActorRole,
			&e.TargetID, &e.TargetType, &e.Detail, &e.RequestID, &e.ClientIP, &e.Device); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
