package cmd

import (
	"context"
	"fmt"
	"log"
	"stock-forecast/config"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/internal/service"
	"stock-forecast/pkg/logger"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gorm.io/datatypes"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default companies and register configured jobs",
	Run:   Seed,
}

func Seed(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}
	defer func() { _ = appDep.Close() }()

	repo := repository.NewRepository(appDep.db.DB)
	services := service.NewService(appDep.cfg, appDep.log, repo, appDep.modelStore, appDep.planner)

	created, err := services.CompanyService.Seed(ctx, service.DefaultCompanies())
	if err != nil {
		log.Fatalf("Failed to seed companies: %v", err)
	}
	appDep.log.Info("Companies seeded", logger.IntField("created", created))

	if err := seedJobs(ctx, repo.JobRepo, appDep.cfg.Scheduler.Jobs); err != nil {
		log.Fatalf("Failed to seed jobs: %v", err)
	}
	appDep.log.Info("Jobs registered", logger.IntField("jobs", len(appDep.cfg.Scheduler.Jobs)))
}

func seedJobs(ctx context.Context, jobRepo repository.JobRepository, jobs []config.Job) error {
	for _, j := range jobs {
		payload := []byte("{}")
		if len(j.Payload) > 0 {
			raw, err := json.Marshal(j.Payload)
			if err != nil {
				return fmt.Errorf("job %s payload: %w", j.Name, err)
			}
			payload = raw
		}
		job := &model.Job{
			Name:        j.Name,
			Description: j.Description,
			Type:        j.Type,
			Payload:     datatypes.JSON(payload),
		}
		if j.Timeout > 0 {
			job.Timeout = int(j.Timeout.Seconds())
		}
		if err := jobRepo.UpsertJob(ctx, job, j.Spec); err != nil {
			return fmt.Errorf("job %s: %w", j.Name, err)
		}
	}
	return nil
}
