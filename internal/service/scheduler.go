package service

import (
	"context"
	"database/sql"
	"fmt"
	"stock-forecast/config"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/utils"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	TriggeredByCron   = "cron"
	TriggeredByManual = "manual"
)

type SchedulerService interface {
	// Execute runs every schedule that is due and moves it to its next slot.
	Execute(ctx context.Context) error
	GetJobSchedule(ctx context.Context, param model.GetJobParam) ([]model.Job, error)
	// RunJobByName starts a job immediately regardless of its schedule.
	RunJobByName(ctx context.Context, name string) (*model.TaskExecutionHistory, error)
}

type schedulerService struct {
	cfg          *config.Config
	log          *logger.Logger
	cronParser   cron.Parser
	jobRepo      repository.JobRepository
	taskExecutor TaskExecutor
	semaphore    chan struct{}
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	jobRepo repository.JobRepository,
	taskExecutor TaskExecutor,
) SchedulerService {
	maxConcurrency := cfg.Scheduler.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &schedulerService{
		cfg:          cfg,
		log:          log,
		jobRepo:      jobRepo,
		cronParser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		taskExecutor: taskExecutor,
		semaphore:    make(chan struct{}, maxConcurrency),
	}
}

func (s *schedulerService) Execute(ctx context.Context) error {
	schedules, err := s.jobRepo.FindJobsToSchedule(ctx, utils.TimeNow())
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find jobs to schedule", logger.ErrorField(err))
		return fmt.Errorf("failed to find jobs to schedule: %w", err)
	}

	if len(schedules) == 0 {
		s.log.DebugContext(ctx, "No jobs to schedule")
		return nil
	}
	s.log.InfoContext(ctx, "Start running jobs",
		logger.IntField("job_count", len(schedules)),
		logger.IntField("max_concurrency", cap(s.semaphore)),
	)

	for _, task := range schedules {
		if !utils.ShouldContinue(ctx, s.log) {
			return nil
		}

		if _, err := s.executeJob(ctx, task, TriggeredByCron); err != nil {
			s.log.ErrorContext(ctx, "Failed to execute job",
				logger.ErrorField(err),
				logger.UintField("job_id", task.JobID),
				logger.UintField("schedule_id", task.ID),
				logger.StringField("job_name", task.Job.Name),
				logger.StringField("job_type", task.Job.Type),
			)
			continue
		}

		s.log.InfoContext(ctx, "Job dispatched",
			logger.UintField("job_id", task.JobID),
			logger.UintField("schedule_id", task.ID),
			logger.StringField("job_name", task.Job.Name),
		)
	}

	return nil
}

func (s *schedulerService) executeJob(ctx context.Context, task model.TaskSchedule, triggeredBy string) (*model.TaskExecutionHistory, error) {
	s.log.DebugContext(ctx, "Executing job",
		logger.UintField("job_id", task.JobID),
		logger.UintField("schedule_id", task.ID),
		logger.StringField("job_name", task.Job.Name),
		logger.StringField("job_type", task.Job.Type),
		logger.IntField("timeout", task.Job.Timeout),
		logger.IntField("active_concurrency", len(s.semaphore)),
		logger.IntField("max_concurrency", cap(s.semaphore)),
	)

	now := utils.TimeNow()
	history := &model.TaskExecutionHistory{
		JobID:       task.JobID,
		ScheduleID:  task.ID,
		TriggeredBy: triggeredBy,
		Status:      model.StatusRunning,
		StartedAt:   now,
	}

	if err := s.jobRepo.CreateTaskExecutionHistory(ctx, history); err != nil {
		s.log.ErrorContext(ctx, "Failed to create task history", logger.ErrorField(err), logger.UintField("schedule_id", task.ID))
		return nil, fmt.Errorf("failed to create task history: %w", err)
	}

	timeout := time.Duration(task.Job.Timeout) * time.Second
	if timeout <= 0 {
		timeout = s.cfg.Scheduler.TimeoutDuration
	}

	select {
	case s.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	// the executor mutates its own copy and outlives the caller's context
	run := *history
	utils.GoSafe(s.log, func() {
		defer func() {
			<-s.semaphore
		}()

		newCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.taskExecutor.Execute(newCtx, &run); err != nil {
			s.log.ErrorContext(newCtx, "Failed to execute task", logger.ErrorField(err), logger.UintField("schedule_id", task.ID))
		}
	})

	if triggeredBy == TriggeredByManual {
		return history, nil
	}

	cronSchedule, err := s.cronParser.Parse(task.CronExpression)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to parse cron expression", logger.ErrorField(err), logger.UintField("schedule_id", task.ID))
		return history, fmt.Errorf("failed to parse cron expression: %w", err)
	}

	task.LastExecution = sql.NullTime{Time: now, Valid: true}
	task.NextExecution = sql.NullTime{Time: cronSchedule.Next(now), Valid: true}

	if err := s.jobRepo.UpdateTaskSchedule(ctx, &task); err != nil {
		s.log.ErrorContext(ctx, "Failed to update task schedule", logger.ErrorField(err), logger.UintField("schedule_id", task.ID))
		return history, fmt.Errorf("failed to update task schedule: %w", err)
	}
	return history, nil
}

func (s *schedulerService) GetJobSchedule(ctx context.Context, param model.GetJobParam) ([]model.Job, error) {
	return s.jobRepo.Get(ctx, &param)
}

func (s *schedulerService) RunJobByName(ctx context.Context, name string) (*model.TaskExecutionHistory, error) {
	s.log.InfoContext(ctx, "Running job task", logger.StringField("job_name", name))
	jobs, err := s.jobRepo.Get(ctx, &model.GetJobParam{Names: []string{name}})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find job", logger.ErrorField(err), logger.StringField("job_name", name))
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("job %q: %w", name, apperror.ErrNotFound)
	}
	job := jobs[0]
	if len(job.Schedules) == 0 {
		return nil, fmt.Errorf("job %q has no schedule: %w", name, apperror.ErrNotFound)
	}

	task := job.Schedules[0]
	task.Job = job
	task.Job.Schedules = nil
	return s.executeJob(ctx, task, TriggeredByManual)
}
