package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pre-triage-server/internal/domain"
)

// SQLiteStore persists sessions and events in an embedded SQLite database.
// Suited to single-node deployments; WAL mode keeps concurrent readers off
// the writer's back.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the database file and schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS triage_sessions (
		id TEXT PRIMARY KEY,
		turn_index INTEGER NOT NULL DEFAULT 0,
		is_complete INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS triage_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		turn_index INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON triage_events(session_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, session *domain.Session) error {
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO triage_sessions (id, turn_index, is_complete, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.TurnIndex, session.IsComplete, string(state),
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM triage_sessions WHERE id = ?", id,
	).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(state), &session); err != nil {
		return nil, fmt.Errorf("unmarshaling session state: %w", err)
	}
	return &session, nil
}

// Update applies the state only when the stored turn index still matches
// the caller's expectation, giving compare-and-swap semantics.
func (s *SQLiteStore) Update(ctx context.Context, session *domain.Session, expectedTurn int) error {
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE triage_sessions
		 SET turn_index = ?, is_complete = ?, state = ?, updated_at = ?
		 WHERE id = ? AND turn_index = ?`,
		session.TurnIndex, session.IsComplete, string(state), time.Now().UTC(),
		session.ID, expectedTurn,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM triage_sessions WHERE id = ?", session.ID,
		).Scan(&exists); err == sql.ErrNoRows {
			return domain.ErrSessionNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append writes one event row. Payloads are stored as JSON text.
func (s *SQLiteStore) Append(ctx context.Context, event *domain.Event) error {
	payload := ""
	if event.Payload != nil {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshaling event payload: %w", err)
		}
		payload = string(data)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO triage_events (id, session_id, turn_index, event_type, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.SessionID, event.TurnIndex, event.Type, payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListBySession(ctx context.Context, sessionID string) ([]*domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, turn_index, event_type, payload, created_at
		 FROM triage_events WHERE session_id = ? ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}
	return events, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s scanner) (*domain.Event, error) {
	event := &domain.Event{}
	var payload string
	if err := s.Scan(&event.ID, &event.SessionID, &event.TurnIndex, &event.Type, &payload, &event.CreatedAt); err != nil {
		return nil, err
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &event.Payload); err != nil {
			return nil, err
		}
	}
	return event, nil
}
