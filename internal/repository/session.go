// Package repository implements the PostgreSQL-backed session and event
// stores used by the postgres backend.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pre-triage-server/internal/domain"
)

// SessionRepository persists triage sessions in PostgreSQL. The full session
// state lives in a JSONB column; turn_index is mirrored in its own column so
// optimistic concurrency can be enforced in the UPDATE predicate.
type SessionRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewSessionRepository(db *sql.DB, logger *logrus.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	query := `
		INSERT INTO triage_sessions (
			id, turn_index, is_complete, state, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)`

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.TurnIndex,
		session.IsComplete,
		state,
		session.CreatedAt,
		session.UpdatedAt,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"session_id": session.ID,
			"error":      err,
		}).Error("Failed to create session")
		return fmt.Errorf("creating session: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"locale":     session.Locale,
	}).Info("Session created")

	return nil
}

// Get retrieves a session by its ID.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT state FROM triage_sessions WHERE id = $1`

	var state []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&state)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSessionNotFound
		}
		r.log.WithFields(logrus.Fields{
			"session_id": id,
			"error":      err,
		}).Error("Failed to get session")
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(state, &session); err != nil {
		return nil, fmt.Errorf("unmarshaling session state: %w", err)
	}
	return &session, nil
}

// Update writes the new state only when the stored turn_index still matches
// expectedTurn. A concurrent writer that advanced the turn first wins.
func (r *SessionRepository) Update(ctx context.Context, session *domain.Session, expectedTurn int) error {
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	query := `
		UPDATE triage_sessions
		SET turn_index = $1, is_complete = $2, state = $3, updated_at = now()
		WHERE id = $4 AND turn_index = $5`

	result, err := r.db.ExecContext(ctx, query,
		session.TurnIndex,
		session.IsComplete,
		state,
		session.ID,
		expectedTurn,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"session_id": session.ID,
			"error":      err,
		}).Error("Failed to update session")
		return fmt.Errorf("updating session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM triage_sessions WHERE id = $1`, session.ID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("checking session existence: %w", err)
		}
		r.log.WithFields(logrus.Fields{
			"session_id":    session.ID,
			"expected_turn": expectedTurn,
		}).Warn("Session update lost optimistic concurrency race")
		return domain.ErrConflict
	}
	return nil
}

// Health verifies the underlying connection.
func (r *SessionRepository) Health(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SessionRepository) Close() error {
	return nil // lifecycle owned by database.DB
}
