package cmd

import (
	"context"
	"stock-forecast/config"
	"stock-forecast/internal/forecastmodel"
	"stock-forecast/internal/modelstore"
	"stock-forecast/internal/planner"
	"stock-forecast/pkg/cache"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/postgres"
	"stock-forecast/pkg/timeseries"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type AppDependency struct {
	db         *postgres.DB
	cfg        *config.Config
	log        *logger.Logger
	validator  *goValidator.Validate
	echo       *echo.Echo
	cache      cache.Cache
	modelStore modelstore.Store
	planner    planner.Planner
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", logger.ErrorField(err))
		return nil, err
	}

	inmemoryCache := cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval)
	cal := timeseries.NewCalendar()
	loader := forecastmodel.NewLoader(cal, cfg.ModelStore.RemoteTimeout)

	return &AppDependency{
		cfg:        cfg,
		log:        log,
		validator:  goValidator.New(),
		db:         db,
		echo:       echo.New(),
		cache:      inmemoryCache,
		modelStore: modelstore.New(cfg.ModelStore, loader.Load, inmemoryCache, log),
		planner:    planner.New(cal, cfg.Forecast.MaxExtendRounds, cfg.Forecast.MaxStartAheadDays, log),
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	defer func() { _ = d.log.Sync() }()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
