// Package session provides the SessionStore implementations: an in-memory
// store for tests and single-node development, an embedded SQLite store,
// and a Redis store for multi-instance deployments.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/pre-triage-server/internal/domain"
)

// MemoryStore keeps sessions in process memory. The optimistic-concurrency
// contract matches the durable stores: Update succeeds only when the stored
// turn index still equals the caller's expectation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*domain.Session{}}
}

func (s *MemoryStore) Create(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return domain.ErrConflict
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, session *domain.Session, expectedTurn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if current.TurnIndex != expectedTurn {
		return domain.ErrConflict
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// MemoryEventStore is the in-process append-only event log.
type MemoryEventStore struct {
	mu     sync.Mutex
	events []*domain.Event
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{}
}

func (s *MemoryEventStore) Append(_ context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryEventStore) ListBySession(_ context.Context, sessionID string) ([]*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Event
	for _, e := range s.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
