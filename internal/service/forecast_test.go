package service

import (
	"context"
	"errors"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type forecastFixture struct {
	db          *gorm.DB
	repo        *repository.Repository
	forecaster  *stubForecaster
	persistence *flakyPersistence
	svc         *forecastService
	company     *model.Company
	user        *model.User
}

func newForecastFixture(t *testing.T) *forecastFixture {
	t.Helper()
	db := newTestDB(t)
	repo := repository.NewRepository(db)
	company, user := seedOwner(t, db)

	f := &stubForecaster{cutoff: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), base: 100}
	store, _ := newTestStore(t, f, "AAPL")
	persistence := &flakyPersistence{next: repo.ForecastPersistence}

	svc := NewForecastService(testConfig(), logger.NewNop(), store, newTestPlanner(),
		repo.CompanyRepo, repo.ForecastRepo, persistence).(*forecastService)
	svc.now = func() time.Time { return time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC) }

	return &forecastFixture{
		db:          db,
		repo:        repo,
		forecaster:  f,
		persistence: persistence,
		svc:         svc,
		company:     company,
		user:        user,
	}
}

func (fx *forecastFixture) storedDates(t *testing.T) []string {
	t.Helper()
	rows, err := fx.repo.ForecastRepo.Get(context.Background(), &model.GetForecastParam{
		CompanyID: &fx.company.ID,
		UserID:    &fx.user.ID,
	})
	require.NoError(t, err)
	dates := make([]string, len(rows))
	for i, r := range rows {
		dates[i] = time.Time(r.ForecastDate).Format(time.DateOnly)
	}
	return dates
}

func TestForecastService_Forecast(t *testing.T) {
	fx := newForecastFixture(t)

	resp, err := fx.svc.Forecast(context.Background(), ForecastInput{
		UserID:    fx.user.ID,
		Symbol:    " aapl ",
		StartDate: "2024-01-10",
		Period:    3,
		Frequency: "D",
	})
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc.", resp.CompanyName)
	assert.Equal(t, "AAPL", resp.CompanySymbol)
	assert.Equal(t, "2024-01-05", resp.LastTrainingDate)
	assert.Equal(t, "2024-01-10", resp.StartDate)
	assert.Empty(t, resp.Notice)
	assert.NotEmpty(t, resp.BatchID)

	require.NotNil(t, resp.Chart)
	assert.Equal(t, []string{"2024-01-10", "2024-01-11", "2024-01-12"}, resp.Chart.Dates)
	assert.Len(t, resp.Chart.Trend, 3)

	require.Len(t, resp.Rows, 3)
	assert.Equal(t, "2024-01-12", resp.Rows[0].ForecastDate)
	assert.Equal(t, "2024-01-10", resp.Rows[2].ForecastDate)
	for _, row := range resp.Rows {
		assert.Equal(t, "AAPL", row.CompanySymbol)
		assert.Equal(t, fx.user.Username, row.Username)
		assert.False(t, row.CreatedAt.IsZero())
	}

	assert.ElementsMatch(t, []string{"2024-01-10", "2024-01-11", "2024-01-12"}, fx.storedDates(t))
}

func TestForecastService_ForecastClampsStartToCutoff(t *testing.T) {
	fx := newForecastFixture(t)

	resp, err := fx.svc.Forecast(context.Background(), ForecastInput{
		UserID: fx.user.ID,
		Symbol: "AAPL",
		Period: 3,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Notice)
	assert.Equal(t, "2024-01-05", resp.StartDate)
	assert.Equal(t, "D", resp.Frequency)
	assert.Equal(t, []string{"2024-01-05", "2024-01-06", "2024-01-07"}, resp.Chart.Dates)
}

func TestForecastService_ForecastReplacesPreviousRun(t *testing.T) {
	fx := newForecastFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Forecast(ctx, ForecastInput{UserID: fx.user.ID, Symbol: "AAPL", StartDate: "2024-01-10", Period: 5})
	require.NoError(t, err)
	_, err = fx.svc.Forecast(ctx, ForecastInput{UserID: fx.user.ID, Symbol: "AAPL", StartDate: "2024-02-01", Period: 2})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"2024-02-01", "2024-02-02"}, fx.storedDates(t))
}

func TestForecastService_ForecastUnknownCompany(t *testing.T) {
	fx := newForecastFixture(t)

	_, err := fx.svc.Forecast(context.Background(), ForecastInput{UserID: fx.user.ID, Symbol: "ZZZZ", Period: 3})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Zero(t, fx.forecaster.calls.Load())
	assert.Zero(t, fx.persistence.calls.Load())
}

func TestForecastService_ForecastModelNotAvailable(t *testing.T) {
	fx := newForecastFixture(t)

	_, err := fx.svc.Forecast(context.Background(), ForecastInput{UserID: fx.user.ID, Symbol: "ZZZY", Period: 3})
	assert.ErrorIs(t, err, apperror.ErrNotAvailable)
	assert.Zero(t, fx.persistence.calls.Load())
}

func TestForecastService_ForecastInvalidArguments(t *testing.T) {
	fx := newForecastFixture(t)

	tests := []struct {
		name string
		in   ForecastInput
	}{
		{name: "bad start date", in: ForecastInput{StartDate: "10/01/2024", Period: 3}},
		{name: "negative period", in: ForecastInput{Period: -1}},
		{name: "period above maximum", in: ForecastInput{Period: 366}},
		{name: "unknown frequency", in: ForecastInput{Period: 3, Frequency: "H"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.UserID = fx.user.ID
			tt.in.Symbol = "AAPL"
			_, err := fx.svc.Forecast(context.Background(), tt.in)
			assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
		})
	}
	assert.Zero(t, fx.forecaster.calls.Load())
}

func TestForecastService_ForecastPredictFailureKeepsStoredRows(t *testing.T) {
	fx := newForecastFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Forecast(ctx, ForecastInput{UserID: fx.user.ID, Symbol: "AAPL", StartDate: "2024-01-10", Period: 2})
	require.NoError(t, err)

	fx.forecaster.set(func(f *stubForecaster) { f.predictErr = errors.New("matrix not invertible") })
	_, err = fx.svc.Forecast(ctx, ForecastInput{UserID: fx.user.ID, Symbol: "AAPL", StartDate: "2024-03-01", Period: 4})
	assert.ErrorIs(t, err, apperror.ErrPredictionFailed)

	assert.ElementsMatch(t, []string{"2024-01-10", "2024-01-11"}, fx.storedDates(t))
}

func TestForecastService_ForecastPredictTimeout(t *testing.T) {
	fx := newForecastFixture(t)
	fx.svc.cfg.Forecast.PredictTimeout = 20 * time.Millisecond
	fx.forecaster.set(func(f *stubForecaster) { f.block = true })

	_, err := fx.svc.Forecast(context.Background(), ForecastInput{UserID: fx.user.ID, Symbol: "AAPL", Period: 2})
	assert.ErrorIs(t, err, apperror.ErrPredictionFailed)
	assert.Zero(t, fx.persistence.calls.Load())
	assert.Empty(t, fx.storedDates(t))
}

func TestForecastService_ForecastCancelledCaller(t *testing.T) {
	fx := newForecastFixture(t)
	fx.forecaster.set(func(f *stubForecaster) { f.block = true })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := fx.svc.Forecast(ctx, ForecastInput{UserID: fx.user.ID, Symbol: "AAPL", Period: 2})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, apperror.ErrPredictionFailed)
	assert.Zero(t, fx.persistence.calls.Load())
}

func TestForecastService_ForecastRetriesPersistenceOnce(t *testing.T) {
	t.Run("second attempt succeeds", func(t *testing.T) {
		fx := newForecastFixture(t)
		fx.persistence.failures = 1

		_, err := fx.svc.Forecast(context.Background(), ForecastInput{UserID: fx.user.ID, Symbol: "AAPL", StartDate: "2024-01-10", Period: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 2, fx.persistence.calls.Load())
		assert.Len(t, fx.storedDates(t), 2)
	})

	t.Run("both attempts fail", func(t *testing.T) {
		fx := newForecastFixture(t)
		fx.persistence.failures = 2

		_, err := fx.svc.Forecast(context.Background(), ForecastInput{UserID: fx.user.ID, Symbol: "AAPL", StartDate: "2024-01-10", Period: 2})
		assert.ErrorIs(t, err, apperror.ErrPersistenceFailed)
		assert.EqualValues(t, 2, fx.persistence.calls.Load())
		assert.Empty(t, fx.storedDates(t))
	})
}

func TestForecastService_StoredAndRecent(t *testing.T) {
	fx := newForecastFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Forecast(ctx, ForecastInput{UserID: fx.user.ID, Symbol: "AAPL", StartDate: "2024-01-10", Period: 7})
	require.NoError(t, err)

	stored, err := fx.svc.Stored(ctx, fx.user.ID, "aapl", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.Period)
	assert.Equal(t, "2024-01-10", stored.StartDate)
	assert.Equal(t, "2024-01-05", stored.LastTrainingDate)
	assert.Equal(t, "2024-01-16", stored.Rows[0].ForecastDate)
	assert.Equal(t, "100.00", stored.Rows[6].PredictedPrice)
	assert.Equal(t, "AAPL", stored.Rows[0].CompanySymbol)
	assert.Equal(t, fx.user.Username, stored.Rows[0].Username)
	assert.Equal(t, "2024-01-10", stored.Chart.Dates[0])

	recent, err := fx.svc.Recent(ctx, fx.user.ID)
	require.NoError(t, err)
	assert.Len(t, recent, recentPredictionLimit)

	all, err := fx.svc.All(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, "alice", all[0].Username)

	_, err = fx.svc.Stored(ctx, fx.user.ID, "MSFT", 0)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
