package cmd

import (
	"context"
	"errors"
	"stock-forecast/internal/delivery/http"
	"stock-forecast/internal/repository"
	"stock-forecast/internal/service"
	"stock-forecast/pkg/logger"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// schedulerTick is how often due task schedules are looked up.
const schedulerTick = "@every 1m"

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the stock-forecast API and job scheduler",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	repo := repository.NewRepository(appDep.db.DB)
	services := service.NewService(
		appDep.cfg,
		appDep.log,
		repo,
		appDep.modelStore,
		appDep.planner,
	)
	httpHandler := http.NewHttpAPIHandler(ctx, appDep.cfg, appDep.log, appDep.echo, appDep.validator, services)

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(schedulerTick, func() {
		if err := services.SchedulerService.Execute(ctx); err != nil {
			appDep.log.ErrorContext(ctx, "Scheduler tick failed", logger.ErrorField(err))
		}
	}); err != nil {
		log.Fatalf("Failed to register scheduler: %v", err)
	}
	scheduler.Start()

	apiServer := NewHTTPServer(ctx, appDep, httpHandler)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, httpNet.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down gracefully...")

	<-scheduler.Stop().Done()

	if err := apiServer.Stop(); err != nil {
		log.Printf("Failed to stop HTTP server: %v", err)
	}

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}
