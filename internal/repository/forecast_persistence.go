package repository

import (
	"context"
	"errors"
	"fmt"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"
	"time"

	"github.com/google/uuid"
)

// ForecastPersistence swaps the stored forecast of one (company, user) pair.
type ForecastPersistence interface {
	// Replace deletes every existing point of the owner and inserts points in
	// one transaction. Concurrent replaces of the same owner commit one after
	// the other, so readers see exactly one complete set.
	Replace(ctx context.Context, companyID, userID uint, points []model.ForecastPoint) (uuid.UUID, error)
	// Expire drops every stored forecast last replaced before date, together
	// with its batch row, and returns the number of points removed.
	Expire(ctx context.Context, before time.Time) (int64, error)
}

type forecastPersistence struct {
	uow          UnitOfWork
	forecastRepo ForecastRepository
}

func NewForecastPersistence(uow UnitOfWork, forecastRepo ForecastRepository) ForecastPersistence {
	return &forecastPersistence{
		uow:          uow,
		forecastRepo: forecastRepo,
	}
}

func (p *forecastPersistence) Replace(ctx context.Context, companyID, userID uint, points []model.ForecastPoint) (uuid.UUID, error) {
	batchID := uuid.New()
	rows := make([]model.ForecastPoint, len(points))
	for i, pt := range points {
		pt.ID = 0
		pt.CompanyID = companyID
		pt.UserID = userID
		pt.BatchID = batchID
		rows[i] = pt
	}

	err := p.uow.Run(ctx, func(opts ...utils.DBOption) error {
		batch := &model.ForecastBatch{
			CompanyID:  companyID,
			UserID:     userID,
			BatchID:    batchID,
			PointCount: len(rows),
		}
		if err := p.forecastRepo.LockBatch(ctx, batch, opts...); err != nil {
			return fmt.Errorf("lock batch: %w", err)
		}
		if _, err := p.forecastRepo.DeletePoints(ctx, companyID, userID, opts...); err != nil {
			return fmt.Errorf("delete previous points: %w", err)
		}
		if err := p.forecastRepo.CreatePoints(ctx, rows, opts...); err != nil {
			return fmt.Errorf("insert points: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("replace forecast of company %d for user %d: %v: %w",
			companyID, userID, err, apperror.ErrPersistenceFailed)
	}
	return batchID, nil
}

func (p *forecastPersistence) Expire(ctx context.Context, before time.Time) (int64, error) {
	batches, err := p.forecastRepo.ListBatchesBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("list expired forecasts: %v: %w", err, apperror.ErrPersistenceFailed)
	}

	var (
		total int64
		errs  []error
	)
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		deleted, err := p.expireBatch(ctx, b.CompanyID, b.UserID, before)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire forecast of company %d for user %d: %v: %w",
				b.CompanyID, b.UserID, err, apperror.ErrPersistenceFailed))
			continue
		}
		total += deleted
	}
	return total, errors.Join(errs...)
}

// expireBatch re-reads the batch under a row lock; a replace that committed
// after the listing keeps its points.
func (p *forecastPersistence) expireBatch(ctx context.Context, companyID, userID uint, before time.Time) (int64, error) {
	var deleted int64
	err := p.uow.Run(ctx, func(opts ...utils.DBOption) error {
		batch, err := p.forecastRepo.GetBatch(ctx, companyID, userID, append(opts, utils.WithLockForUpdate())...)
		if err != nil {
			return fmt.Errorf("lock batch: %w", err)
		}
		if batch == nil || !batch.UpdatedAt.Before(before) {
			return nil
		}
		deleted, err = p.forecastRepo.DeletePoints(ctx, companyID, userID, opts...)
		if err != nil {
			return fmt.Errorf("delete points: %w", err)
		}
		if err := p.forecastRepo.DeleteBatch(ctx, companyID, userID, opts...); err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
