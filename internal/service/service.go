package service

import (
	"stock-forecast/config"
	"stock-forecast/internal/modelstore"
	"stock-forecast/internal/planner"
	"stock-forecast/internal/repository"
	"stock-forecast/internal/strategy"
	"stock-forecast/pkg/logger"
)

type Service struct {
	AuthService      AuthService
	CompanyService   CompanyService
	ReviewService    ReviewService
	ForecastService  ForecastService
	DashboardService DashboardService
	SchedulerService SchedulerService
	TaskExecutor     TaskExecutor
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	store modelstore.Store,
	planner planner.Planner,
) *Service {
	authService := NewAuthService(cfg, log, repo.UserRepo)
	companyService := NewCompanyService(log, repo.CompanyRepo, repo.ReviewRepo, store)
	forecastService := NewForecastService(cfg, log, store, planner, repo.CompanyRepo, repo.ForecastRepo, repo.ForecastPersistence)

	executorStrategies := make(map[strategy.JobType]strategy.JobExecutionStrategy)
	executorStrategies[strategy.JobTypeForecastCleanUp] = strategy.NewForecastCleanUpStrategy(log, repo.ForecastPersistence, repo.JobRepo)
	executorStrategies[strategy.JobTypeModelWarmUp] = strategy.NewModelWarmUpStrategy(log, store)

	taskExecutor := NewTaskExecutor(cfg, log, repo.JobRepo, executorStrategies)
	schedulerService := NewSchedulerService(cfg, log, repo.JobRepo, taskExecutor)

	return &Service{
		AuthService:      authService,
		CompanyService:   companyService,
		ReviewService:    NewReviewService(log, repo.CompanyRepo, repo.ReviewRepo),
		ForecastService:  forecastService,
		DashboardService: NewDashboardService(authService, companyService, forecastService),
		SchedulerService: schedulerService,
		TaskExecutor:     taskExecutor,
	}
}
