package models

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestRepository(t *testing.T) *SQLETLLogRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLETLLogRepository(db)
	require.NoError(t, repo.CreateETLLogTable(context.Background()))
	// повторное создание не должно падать
	require.NoError(t, repo.CreateETLLogTable(context.Background()))
	return repo
}

func TestETLLogRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	last, err := repo.GetLastSuccessfulRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	okID, err := repo.CreateLogEntry(ctx, start)
	require.NoError(t, err)
	require.NotEmpty(t, okID)
	require.NoError(t, repo.UpdateLogEntrySuccess(ctx, okID, start.Add(90*time.Second), 13, 420, 100, 100))

	failedID, err := repo.CreateLogEntry(ctx, start.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateLogEntryFailure(ctx, failedID, start.Add(time.Hour+time.Second), "ошибка в фазе Extract"))

	last, err = repo.GetLastSuccessfulRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, okID, last.ID)
	assert.Equal(t, RunStatusSuccess, last.Status)
	assert.Equal(t, 13, last.TablesWritten)
	assert.Equal(t, 420, last.RowsWritten)
	assert.InDelta(t, 100, last.IntegrityScore, 1e-9)
	assert.InDelta(t, 90, last.ExecutionTimeSeconds, 1e-9)
	assert.True(t, start.Equal(last.StartTime))

	stats, err := repo.GetETLRunStats(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, failedID, stats[0].ID, "newest first")
	assert.Equal(t, RunStatusFailed, stats[0].Status)
	assert.Equal(t, "ошибка в фазе Extract", stats[0].ErrorMessage)

	stats, err = repo.GetETLRunStats(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, stats, 1)
}

func TestETLLogRepositoryInProgressEntry(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id, err := repo.CreateLogEntry(ctx, time.Now())
	require.NoError(t, err)

	stats, err := repo.GetETLRunStats(ctx, 5)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, id, stats[0].ID)
	assert.Equal(t, RunStatusInProgress, stats[0].Status)
	assert.True(t, stats[0].EndTime.IsZero())

	err = repo.UpdateLogEntrySuccess(ctx, "unknown", time.Now(), 0, 0, 0, 0)
	assert.Error(t, err)
}
