package repository

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pre-triage-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSessionRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepository(db, testLogger())
	sess := domain.NewSession("pg-1", "tr")
	sess.Known.Add("idrarda yanma")

	mock.ExpectExec("INSERT INTO triage_sessions").
		WithArgs(sess.ID, sess.TurnIndex, sess.IsComplete, sqlmock.AnyArg(), sess.CreatedAt, sess.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), sess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepository(db, testLogger())

	stored := domain.NewSession("pg-2", "tr")
	stored.TurnIndex = 3
	stored.Known.Add("bas agrisi")
	state, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT state FROM triage_sessions").
		WithArgs("pg-2").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(state))

	got, err := repo.Get(context.Background(), "pg-2")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TurnIndex)
	assert.True(t, got.Known.Has("bas agrisi"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepository(db, testLogger())

	mock.ExpectQuery("SELECT state FROM triage_sessions").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"state"}))

	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepository(db, testLogger())
	sess := domain.NewSession("pg-3", "tr")
	sess.TurnIndex = 2

	mock.ExpectExec("UPDATE triage_sessions").
		WithArgs(2, false, sqlmock.AnyArg(), "pg-3", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), sess, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_UpdateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepository(db, testLogger())
	sess := domain.NewSession("pg-4", "tr")
	sess.TurnIndex = 2

	mock.ExpectExec("UPDATE triage_sessions").
		WithArgs(2, false, sqlmock.AnyArg(), "pg-4", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM triage_sessions").
		WithArgs("pg-4").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	assert.ErrorIs(t, repo.Update(context.Background(), sess, 1), domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_UpdateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepository(db, testLogger())
	sess := domain.NewSession("pg-5", "tr")
	sess.TurnIndex = 1

	mock.ExpectExec("UPDATE triage_sessions").
		WithArgs(1, false, sqlmock.AnyArg(), "pg-5", 0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM triage_sessions").
		WithArgs("pg-5").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	assert.ErrorIs(t, repo.Update(context.Background(), sess, 0), domain.ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
