package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{db: sqlx.NewDb(db, "postgres")}, mock
}

func TestClaimNextQueuedJob_NoneQueued(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM jobs WHERE status`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	job, err := s.ClaimNextQueuedJob(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNextQueuedJob_ClaimsOldest(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	cols := []string{"id", "mode", "generation_id", "region", "voice", "pokemon_ids", "total", "current", "stage", "status", "message", "cooldown_until", "error", "created_at", "updated_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM jobs WHERE status`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("job-1"))
	mock.ExpectQuery(`UPDATE jobs SET status`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"job-1", ModeFull, 1, "Kanto", "Kore", []byte(`[1,2,3]`), 3, 0, StageSummary, StatusRunning, "Queued", nil, nil, now, now,
		))
	mock.ExpectCommit()

	job, err := s.ClaimNextQueuedJob(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, StatusRunning, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetJobStatus_RejectsIllegalTransition(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM jobs WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusCompleted))
	mock.ExpectRollback()

	err := s.SetJobStatus(context.Background(), "job-1", StatusRunning)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestSetJobStatus_AllowsFailedFromAnyNonTerminal(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM jobs WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusPaused))
	mock.ExpectExec(`UPDATE jobs SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.SetJobStatus(context.Background(), "job-1", StatusFailed)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetJobStatus_ClearsCooldownLeavingRunning(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM jobs WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusRunning))
	mock.ExpectExec(`UPDATE jobs SET status = \$1, cooldown_until = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.SetJobStatus(context.Background(), "job-1", StatusPaused)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecoverStalledJobs_ReturnsCount(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE jobs SET status`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.RecoverStalledJobs(context.Background(), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
