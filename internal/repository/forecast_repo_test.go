package repository

import (
	"context"
	"errors"
	"fmt"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func makePoints(start time.Time, n int, base float64) []model.ForecastPoint {
	out := make([]model.ForecastPoint, n)
	for i := range out {
		v := decimal.NewFromFloat(base + float64(i)).Round(2)
		out[i] = model.ForecastPoint{
			ForecastDate:   datatypes.Date(start.AddDate(0, 0, i)),
			PredictedPrice: v,
			LowerBound:     v.Sub(decimal.NewFromInt(1)),
			UpperBound:     v.Add(decimal.NewFromInt(1)),
		}
	}
	return out
}

func storedDates(points []model.ForecastPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = time.Time(p.ForecastDate).Format(time.DateOnly)
	}
	return out
}

func TestForecastReplace(t *testing.T) {
	db := newTestDB(t)
	company, user := seedOwner(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	first, err := repo.ForecastPersistence.Replace(ctx, company.ID, user.ID, makePoints(jan, 5, 100))
	require.NoError(t, err)

	feb := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	second, err := repo.ForecastPersistence.Replace(ctx, company.ID, user.ID, makePoints(feb, 3, 200.456))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	points, err := repo.ForecastRepo.Get(ctx, &model.GetForecastParam{CompanyID: &company.ID, UserID: &user.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-01", "2024-02-02", "2024-02-03"}, storedDates(points))
	for _, p := range points {
		assert.Equal(t, second, p.BatchID)
		assert.Equal(t, "AAPL", p.Company.Symbol)
	}
	assert.Equal(t, "200.46", points[0].PredictedPrice.StringFixed(2))

	batch, err := repo.ForecastRepo.GetBatch(ctx, company.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, second, batch.BatchID)
	assert.Equal(t, 3, batch.PointCount)
}

func TestForecastReplaceKeepsOtherOwners(t *testing.T) {
	db := newTestDB(t)
	company, alice := seedOwner(t, db)
	bob := &model.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(bob).Error)
	repo := NewRepository(db)
	ctx := context.Background()

	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.ForecastPersistence.Replace(ctx, company.ID, bob.ID, makePoints(jan, 4, 10))
	require.NoError(t, err)
	_, err = repo.ForecastPersistence.Replace(ctx, company.ID, alice.ID, makePoints(jan, 2, 20))
	require.NoError(t, err)

	points, err := repo.ForecastRepo.Get(ctx, &model.GetForecastParam{UserID: &bob.ID})
	require.NoError(t, err)
	assert.Len(t, points, 4)
}

func TestForecastReplaceRollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	company, user := seedOwner(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	original, err := repo.ForecastPersistence.Replace(ctx, company.ID, user.ID, makePoints(jan, 3, 100))
	require.NoError(t, err)

	// duplicate dates violate the per-owner unique index on insert
	bad := append(makePoints(jan, 2, 1), makePoints(jan, 1, 1)...)
	_, err = repo.ForecastPersistence.Replace(ctx, company.ID, user.ID, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrPersistenceFailed))

	points, err := repo.ForecastRepo.Get(ctx, &model.GetForecastParam{CompanyID: &company.ID, UserID: &user.ID})
	require.NoError(t, err)
	assert.Len(t, points, 3)
	for _, p := range points {
		assert.Equal(t, original, p.BatchID)
	}
}

// TestForecastReplaceConcurrent checks that readers only ever see one complete
// set. The single sqlite connection runs the transactions one at a time, so
// this does not exercise the batch row lock; TestForecastReplaceConcurrentPostgres
// (build tag postgres) does.
func TestForecastReplaceConcurrent(t *testing.T) {
	db := newTestDB(t)
	company, user := seedOwner(t, db)
	assertReplaceAtomic(t, NewRepository(db), company, user)
}

// assertReplaceAtomic races several replaces of one owner against a reader.
func assertReplaceAtomic(t *testing.T, repo *Repository, company *model.Company, user *model.User) {
	t.Helper()
	ctx := context.Background()

	const writers = 6
	sets := make(map[string][]string, writers)
	payloads := make([][]model.ForecastPoint, writers)
	for i := 0; i < writers; i++ {
		start := time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		payloads[i] = makePoints(start, 10+i, float64(i))
		sets[fmt.Sprint(10+i)] = storedDates(payloads[i])
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	readerErr := make(chan error, 1)
	go func() {
		defer close(readerErr)
		for {
			select {
			case <-stop:
				return
			default:
			}
			points, err := repo.ForecastRepo.Get(ctx, &model.GetForecastParam{CompanyID: &company.ID, UserID: &user.ID})
			if err != nil {
				readerErr <- err
				return
			}
			if len(points) == 0 {
				continue
			}
			batches := map[uuid.UUID]struct{}{}
			for _, p := range points {
				batches[p.BatchID] = struct{}{}
			}
			want, ok := sets[fmt.Sprint(len(points))]
			if len(batches) != 1 || !ok || !assert.ObjectsAreEqual(want, storedDates(points)) {
				readerErr <- fmt.Errorf("observed mixed forecast: %d batches, dates %v", len(batches), storedDates(points))
				return
			}
		}
	}()

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(points []model.ForecastPoint) {
			defer wg.Done()
			_, err := repo.ForecastPersistence.Replace(ctx, company.ID, user.ID, points)
			assert.NoError(t, err)
		}(payloads[i])
	}
	wg.Wait()
	close(stop)
	require.NoError(t, <-readerErr)

	points, err := repo.ForecastRepo.Get(ctx, &model.GetForecastParam{CompanyID: &company.ID, UserID: &user.ID})
	require.NoError(t, err)
	batch, err := repo.ForecastRepo.GetBatch(ctx, company.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.PointCount, len(points))
	assert.Equal(t, sets[fmt.Sprint(len(points))], storedDates(points))
	for _, p := range points {
		assert.Equal(t, batch.BatchID, p.BatchID)
	}
}

func TestForecastGetOrderingAndExpire(t *testing.T) {
	db := newTestDB(t)
	company, user := seedOwner(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.ForecastPersistence.Replace(ctx, company.ID, user.ID, makePoints(jan, 7, 1))
	require.NoError(t, err)

	points, err := repo.ForecastRepo.Get(ctx, &model.GetForecastParam{
		UserID:   &user.ID,
		DateDesc: true,
		Limit:    utils.ToPointer(3),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-07", "2024-01-06", "2024-01-05"}, storedDates(points))

	deleted, err := repo.ForecastPersistence.Expire(ctx, utils.TimeNow().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = repo.ForecastPersistence.Expire(ctx, utils.TimeNow().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)

	batch, err := repo.ForecastRepo.GetBatch(ctx, company.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, batch)

	// the next replace starts a fresh batch row
	_, err = repo.ForecastPersistence.Replace(ctx, company.ID, user.ID, makePoints(jan, 2, 1))
	require.NoError(t, err)
	batch, err = repo.ForecastRepo.GetBatch(ctx, company.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 2, batch.PointCount)
}
