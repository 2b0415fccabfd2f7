package domain

import "context"

// SessionStore persists triage session state. Update applies optimistic
// concurrency: the write succeeds only when the stored turn_index still
// equals expectedTurn, otherwise ErrConflict.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, session *Session, expectedTurn int) error
	Health(ctx context.Context) error
	Close() error
}

// EventStore is the append-only observability log. Writes are best-effort
// from the orchestrator's point of view; a failed append never fails a turn.
type EventStore interface {
	Append(ctx context.Context, event *Event) error
	ListBySession(ctx context.Context, sessionID string) ([]*Event, error)
}
