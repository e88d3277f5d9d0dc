package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"stock-forecast/config"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/contract"
	"stock-forecast/internal/model"
	"stock-forecast/internal/modelstore"
	"stock-forecast/internal/planner"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/cache"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/timeseries"
	"stock-forecast/pkg/utils"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
		NowFunc:        utils.TimeNow,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Company{},
		&model.ForecastBatch{},
		&model.ForecastPoint{},
		&model.Review{},
		&model.Job{},
		&model.TaskSchedule{},
		&model.TaskExecutionHistory{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		API: config.API{
			JWTSecret:  "test-secret",
			JWTTTL:     time.Hour,
			BcryptCost: 4,
		},
		Forecast: config.Forecast{
			PredictTimeout:   time.Second,
			MaxPeriod:        365,
			MaxExtendRounds:  4,
			DefaultFrequency: "D",
			DefaultPeriod:    30,
		},
		Scheduler: config.Scheduler{
			MaxConcurrency:  2,
			TimeoutDuration: time.Second,
		},
	}
}

// stubForecaster steps one calendar day at a time after the cutoff.
type stubForecaster struct {
	cutoff time.Time

	mu         sync.Mutex
	predictErr error
	block      bool
	base       float64
	calls      atomic.Int32
}

func (f *stubForecaster) LastTrainingDate() time.Time {
	return f.cutoff
}

func (f *stubForecaster) ProjectFuture(_ context.Context, periods int, _ timeseries.Frequency, _ bool) ([]time.Time, error) {
	out := make([]time.Time, periods)
	for i := range out {
		out[i] = f.cutoff.AddDate(0, 0, i+1)
	}
	return out, nil
}

func (f *stubForecaster) Predict(ctx context.Context, ts []time.Time) ([]contract.Prediction, error) {
	f.calls.Add(1)
	f.mu.Lock()
	err, block, base := f.predictErr, f.block, f.base
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	out := make([]contract.Prediction, len(ts))
	for i, t := range ts {
		y := base + float64(i)
		out[i] = contract.Prediction{Time: t, Yhat: y, Lower: y - 5, Upper: y + 5, Trend: y, Weekly: 0.5, Yearly: -0.5}
	}
	return out, nil
}

func (f *stubForecaster) set(fn func(f *stubForecaster)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// newTestStore serves f for every symbol given. ZZZY is supported but has no
// artifact on disk.
func newTestStore(t *testing.T, f contract.Forecaster, symbols ...string) (modelstore.Store, *atomic.Int32) {
	t.Helper()
	dir := t.TempDir()
	for _, sym := range symbols {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "forecast_model_"+sym+".json"), []byte("{}"), 0o600))
	}
	var loads atomic.Int32
	load := func(string) (any, error) {
		loads.Add(1)
		return f, nil
	}
	store := modelstore.New(config.ModelStore{
		Dir:     dir,
		Symbols: append([]string{"ZZZY"}, symbols...),
	}, load, cache.NewCache(time.Minute, time.Minute), logger.NewNop())
	return store, &loads
}

func newTestPlanner() planner.Planner {
	return planner.New(timeseries.NewCalendar(), 4, 0, logger.NewNop())
}

// flakyPersistence fails the first failures calls before delegating.
type flakyPersistence struct {
	next     repository.ForecastPersistence
	failures int32
	calls    atomic.Int32
}

func (p *flakyPersistence) Replace(ctx context.Context, companyID, userID uint, points []model.ForecastPoint) (uuid.UUID, error) {
	if p.calls.Add(1) <= p.failures {
		return uuid.Nil, fmt.Errorf("connection reset: %w", apperror.ErrPersistenceFailed)
	}
	return p.next.Replace(ctx, companyID, userID, points)
}

func (p *flakyPersistence) Expire(ctx context.Context, before time.Time) (int64, error) {
	return p.next.Expire(ctx, before)
}

func seedOwner(t *testing.T, db *gorm.DB) (*model.Company, *model.User) {
	t.Helper()
	company := &model.Company{Symbol: "AAPL", Name: "Apple Inc."}
	require.NoError(t, db.Create(company).Error)
	user := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return company, user
}

func seedUser(t *testing.T, repo *repository.Repository, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, repo.UserRepo.CreateUser(context.Background(), user))
	return user
}
