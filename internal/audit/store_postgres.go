package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "crest/pkg/domain"
)

// PostgresStore persists audit events append-only.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (occurred_at, user_id, actor_id, action, subject, request_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.Timestamp, uuid.UUID(event.UserID), uuid.UUID(event.Actor),
		event.Action, event.Subject, event.RequestID)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]Event, error) {
	query := `
		SELECT occurred_at, user_id, actor_id, action, subject, request_id
		FROM audit_events WHERE user_id = $1 ORDER BY occurred_at
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var event Event
		var user, actor uuid.UUID
		if err := rows.Scan(&event.Timestamp, &user, &actor, &event.Action, &event.Subject, &event.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.UserID = id.UserID(user)
		event.Actor = id.UserID(actor)
		out = append(out, event)
	}
	return out, rows.Err()
}
