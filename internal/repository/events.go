package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pre-triage-server/internal/domain"
)

// EventRepository is the append-only event log in PostgreSQL.
type EventRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewEventRepository(db *sql.DB, logger *logrus.Logger) *EventRepository {
	return &EventRepository{
		db:  db,
		log: logger,
	}
}

// Append inserts one event row.
func (r *EventRepository) Append(ctx context.Context, event *domain.Event) error {
	var payload []byte
	if event.Payload != nil {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshaling event payload: %w", err)
		}
		payload = data
	}

	query := `
		INSERT INTO triage_events (
			id, session_id, turn_index, event_type, payload, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.SessionID,
		event.TurnIndex,
		event.Type,
		payload,
		event.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"session_id": event.SessionID,
			"event_type": event.Type,
			"error":      err,
		}).Error("Failed to append event")
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// ListBySession returns a session's events in chronological order.
func (r *EventRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Event, error) {
	query := `
		SELECT id, session_id, turn_index, event_type, payload, created_at
		FROM triage_events
		WHERE session_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err,
		}).Error("Failed to list events")
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event := &domain.Event{}
		var payload []byte
		if err := rows.Scan(
			&event.ID,
			&event.SessionID,
			&event.TurnIndex,
			&event.Type,
			&payload,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, fmt.Errorf("unmarshaling event payload: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}
	return events, nil
}
