package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSummary_Upserts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO summaries`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertSummary(context.Background(), Summary{ID: 1, Name: "Bulbasaur", Summary: "text", Region: "Kanto", GenerationID: 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPrompt_NotFoundFallsBackToCaller(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM prompts WHERE type`).
		WillReturnRows(sqlmock.NewRows([]string{"type", "content", "created_at", "updated_at"}))

	_, err := s.GetPrompt(context.Background(), PromptSummary)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetSummaries_OrdersByRequestedIDs(t *testing.T) {
	s, mock := newMockStore(t)

	cols := []string{"id", "name", "summary", "region", "generation_id", "created_at", "updated_at"}
	mock.ExpectQuery(`SELECT \* FROM summaries WHERE id = ANY`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(3, "c", "s3", "Kanto", 1, time.Now(), time.Now()).
			AddRow(1, "a", "s1", "Kanto", 1, time.Now(), time.Now()))

	got, err := s.GetSummaries(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
}
