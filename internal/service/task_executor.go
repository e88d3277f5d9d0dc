package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"stock-forecast/config"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/internal/strategy"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/utils"
)

type TaskExecutor interface {
	Execute(ctx context.Context, taskHistory *model.TaskExecutionHistory) error
}

type taskExecutor struct {
	cfg                *config.Config
	log                *logger.Logger
	jobRepo            repository.JobRepository
	executorStrategies map[strategy.JobType]strategy.JobExecutionStrategy
}

func NewTaskExecutor(cfg *config.Config, log *logger.Logger, jobRepo repository.JobRepository, executorStrategies map[strategy.JobType]strategy.JobExecutionStrategy) TaskExecutor {
	return &taskExecutor{
		jobRepo:            jobRepo,
		cfg:                cfg,
		log:                log,
		executorStrategies: executorStrategies,
	}
}

func (t *taskExecutor) Execute(ctx context.Context, taskHistory *model.TaskExecutionHistory) error {
	t.log.InfoContext(ctx, "Processing job", logger.UintField("job_id", taskHistory.JobID), logger.UintField("history_id", taskHistory.ID))

	// history must be closed even when the job used up its deadline
	saveCtx := context.WithoutCancel(ctx)

	job, err := t.jobRepo.FindByID(ctx, taskHistory.JobID)
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to find job", logger.ErrorField(err), logger.UintField("job_id", taskHistory.JobID))
		taskHistory.Status = model.StatusFailed
		taskHistory.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		return errors.Join(fmt.Errorf("failed to find job: %w", err), t.finish(saveCtx, taskHistory))
	}

	executor := t.executorStrategies[strategy.JobType(job.Type)]
	if executor == nil {
		t.log.ErrorContext(ctx, "Job type not found", logger.UintField("job_id", taskHistory.JobID), logger.StringField("job_type", job.Type))
		taskHistory.Status = model.StatusFailed
		taskHistory.ErrorMessage = sql.NullString{String: "job type not found", Valid: true}
	} else {
		result, err := executor.Execute(ctx, job)
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			t.log.WarnContext(ctx, "Job timed out", logger.UintField("job_id", taskHistory.JobID), logger.IntField("timeout", job.Timeout))
			taskHistory.Status = model.StatusTimeout
			taskHistory.ErrorMessage = sql.NullString{String: ctx.Err().Error(), Valid: true}
		case err != nil:
			t.log.ErrorContext(ctx, "Failed to execute job", logger.ErrorField(err), logger.UintField("job_id", taskHistory.JobID))
			taskHistory.Status = model.StatusFailed
			taskHistory.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		default:
			taskHistory.Status = model.StatusCompleted
		}
		taskHistory.ExitCode = sql.NullInt32{Int32: result.ExitCode, Valid: true}
		taskHistory.Output = sql.NullString{String: result.Output, Valid: true}
	}

	return t.finish(saveCtx, taskHistory)
}

func (t *taskExecutor) finish(ctx context.Context, taskHistory *model.TaskExecutionHistory) error {
	taskHistory.CompletedAt = sql.NullTime{Time: utils.TimeNow(), Valid: true}
	if err := t.jobRepo.UpdateTaskExecutionHistory(ctx, taskHistory); err != nil {
		t.log.ErrorContext(ctx, "Failed to update task execution history", logger.ErrorField(err), logger.UintField("job_id", taskHistory.JobID))
		return fmt.Errorf("failed to update task execution history: %w", err)
	}
	return nil
}
