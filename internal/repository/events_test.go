package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pre-triage-server/internal/domain"
)

func TestEventRepository_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEventRepository(db, testLogger())
	event := &domain.Event{
		ID:        "ev-1",
		SessionID: "pg-1",
		TurnIndex: 1,
		Type:      domain.EventCanonicalsExtracted,
		Payload:   map[string]any{"canonicals": []string{"ates"}},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO triage_events").
		WithArgs(event.ID, event.SessionID, event.TurnIndex, event.Type, sqlmock.AnyArg(), event.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Append(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_ListBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEventRepository(db, testLogger())
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "session_id", "turn_index", "event_type", "payload", "created_at"}).
		AddRow("ev-1", "pg-1", 1, domain.EventSessionCreated, nil, created).
		AddRow("ev-2", "pg-1", 1, domain.EventQuestionEmitted, []byte(`{"canonical":"ates"}`), created.Add(time.Second))

	mock.ExpectQuery("SELECT id, session_id, turn_index, event_type, payload, created_at").
		WithArgs("pg-1").
		WillReturnRows(rows)

	events, err := repo.ListBySession(context.Background(), "pg-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventSessionCreated, events[0].Type)
	assert.Nil(t, events[0].Payload)
	assert.Equal(t, "ates", events[1].Payload["canonical"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
