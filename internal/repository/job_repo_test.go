package repository

import (
	"context"
	"database/sql"
	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestJobUpsertAndSchedule(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	job := &model.Job{Name: "forecast-cleanup", Type: "forecast_cleanup", Payload: datatypes.JSON(`{"retention_days":90}`), Timeout: 60}
	require.NoError(t, repo.UpsertJob(ctx, job, "0 3 * * *"))

	again := &model.Job{Name: "forecast-cleanup", Type: "forecast_cleanup", Payload: datatypes.JSON(`{"retention_days":30}`), Timeout: 60}
	require.NoError(t, repo.UpsertJob(ctx, again, "0 4 * * *"))
	assert.Equal(t, job.ID, again.ID)

	jobs, err := repo.Get(ctx, &model.GetJobParam{Names: []string{"forecast-cleanup"}, IsActive: utils.ToPointer(true)})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Len(t, jobs[0].Schedules, 1)
	assert.Equal(t, "0 4 * * *", jobs[0].Schedules[0].CronExpression)
	assert.JSONEq(t, `{"retention_days":30}`, string(jobs[0].Payload))

	now := utils.TimeNow()
	due, err := repo.FindJobsToSchedule(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "forecast-cleanup", due[0].Job.Name)

	due[0].LastExecution = sql.NullTime{Time: now, Valid: true}
	due[0].NextExecution = sql.NullTime{Time: now.Add(time.Hour), Valid: true}
	require.NoError(t, repo.UpdateTaskSchedule(ctx, &due[0]))

	due, err = repo.FindJobsToSchedule(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestTaskExecutionHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	job := &model.Job{Name: "model-warmup", Type: "model_warmup", Payload: datatypes.JSON(`{}`)}
	require.NoError(t, repo.UpsertJob(ctx, job, "@hourly"))

	history := &model.TaskExecutionHistory{JobID: job.ID, ScheduleID: 1, Status: model.StatusRunning, StartedAt: utils.TimeNow()}
	require.NoError(t, repo.CreateTaskExecutionHistory(ctx, history))

	history.Status = model.StatusCompleted
	history.ExitCode = sql.NullInt32{Int32: 200, Valid: true}
	require.NoError(t, repo.UpdateTaskExecutionHistory(ctx, history))

	jobs, err := repo.Get(ctx, &model.GetJobParam{IDs: []uint{job.ID}, HistoryLimit: utils.ToPointer(5)})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Len(t, jobs[0].Histories, 1)
	assert.Equal(t, model.StatusCompleted, jobs[0].Histories[0].Status)

	deleted, err := repo.DeleteTaskHistoryOlderThan(ctx, utils.TimeNow().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
