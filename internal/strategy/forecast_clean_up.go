package strategy

import (
	"context"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/utils"
)

const defaultRetentionDays = 90

type ForecastCleanUpPayload struct {
	RetentionDays int `json:"retention_days"`
}

type ForecastCleanUpResult struct {
	Table string `json:"table"`
	Total int64  `json:"total"`
	Error string `json:"error,omitempty"`
}

// ForecastCleanUpStrategy drops stored forecasts and job history older than
// the retention window. Forecasts expire whole, batch row included.
type ForecastCleanUpStrategy struct {
	log         *logger.Logger
	persistence repository.ForecastPersistence
	jobRepo     repository.JobRepository
}

func NewForecastCleanUpStrategy(log *logger.Logger, persistence repository.ForecastPersistence, jobRepo repository.JobRepository) JobExecutionStrategy {
	return &ForecastCleanUpStrategy{
		log:         log,
		persistence: persistence,
		jobRepo:     jobRepo,
	}
}

func (s *ForecastCleanUpStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	s.log.InfoContext(ctx, "Starting forecast clean up", logger.UintField("job_id", job.ID))

	payload := ForecastCleanUpPayload{RetentionDays: defaultRetentionDays}
	if res, err := decodePayload(job, &payload); err != nil {
		s.log.ErrorContext(ctx, "Failed to unmarshal job payload", logger.ErrorField(err), logger.UintField("job_id", job.ID))
		return res, err
	}
	if payload.RetentionDays <= 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "retention_days must be positive"}, nil
	}

	date := utils.DaysAgo(payload.RetentionDays)
	results := make([]ForecastCleanUpResult, 0, 2)
	failed := 0

	totalPoints, err := s.persistence.Expire(ctx, date)
	results = append(results, cleanUpResult("forecast_points", totalPoints, err))
	if err != nil {
		failed++
		s.log.ErrorContext(ctx, "Failed to delete old forecast points", logger.ErrorField(err), logger.UintField("job_id", job.ID))
	}

	totalHistory, err := s.jobRepo.DeleteTaskHistoryOlderThan(ctx, date)
	results = append(results, cleanUpResult("task_execution_history", totalHistory, err))
	if err != nil {
		failed++
		s.log.ErrorContext(ctx, "Failed to delete old task history", logger.ErrorField(err), logger.UintField("job_id", job.ID))
	}

	return summarize(results, failed, len(results), "forecast clean up failed")
}

func cleanUpResult(table string, total int64, err error) ForecastCleanUpResult {
	r := ForecastCleanUpResult{Table: table, Total: total}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func (s *ForecastCleanUpStrategy) GetType() JobType {
	return JobTypeForecastCleanUp
}
