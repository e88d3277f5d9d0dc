package repository

import (
	"context"
	"errors"
	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 500

type ForecastRepository interface {
	// LockBatch upserts the owner's batch row. Inside a transaction the row
	// lock is held until commit, serializing replaces of the same owner.
	LockBatch(ctx context.Context, batch *model.ForecastBatch, opts ...utils.DBOption) error
	GetBatch(ctx context.Context, companyID, userID uint, opts ...utils.DBOption) (*model.ForecastBatch, error)
	DeletePoints(ctx context.Context, companyID, userID uint, opts ...utils.DBOption) (int64, error)
	CreatePoints(ctx context.Context, points []model.ForecastPoint, opts ...utils.DBOption) error
	Get(ctx context.Context, param *model.GetForecastParam, opts ...utils.DBOption) ([]model.ForecastPoint, error)
	// ListBatchesBefore returns batches last replaced before date.
	ListBatchesBefore(ctx context.Context, date time.Time, opts ...utils.DBOption) ([]model.ForecastBatch, error)
	DeleteBatch(ctx context.Context, companyID, userID uint, opts ...utils.DBOption) error
}

type forecastRepository struct {
	db *gorm.DB
}

func NewForecastRepository(db *gorm.DB) ForecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) LockBatch(ctx context.Context, batch *model.ForecastBatch, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"batch_id", "point_count", "updated_at"}),
		}).
		Create(batch).Error
}

func (r *forecastRepository) GetBatch(ctx context.Context, companyID, userID uint, opts ...utils.DBOption) (*model.ForecastBatch, error) {
	var batch model.ForecastBatch
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *forecastRepository) DeletePoints(ctx context.Context, companyID, userID uint, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Delete(&model.ForecastPoint{})
	return result.RowsAffected, result.Error
}

func (r *forecastRepository) CreatePoints(ctx context.Context, points []model.ForecastPoint, opts ...utils.DBOption) error {
	if len(points) == 0 {
		return nil
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).CreateInBatches(points, insertBatchSize).Error
}

func (r *forecastRepository) Get(ctx context.Context, param *model.GetForecastParam, opts ...utils.DBOption) ([]model.ForecastPoint, error) {
	var points []model.ForecastPoint
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Preload("Company")
	if param.WithUser {
		db = db.Preload("User")
	}
	if param.CompanyID != nil {
		db = db.Where("company_id = ?", *param.CompanyID)
	}
	if param.UserID != nil {
		db = db.Where("user_id = ?", *param.UserID)
	}
	if param.BatchID != nil {
		db = db.Where("batch_id = ?", *param.BatchID)
	}
	switch {
	case param.NewestFirst:
		db = db.Order("created_at DESC").Order("forecast_date ASC")
	case param.DateDesc:
		db = db.Order("forecast_date DESC")
	default:
		db = db.Order("forecast_date ASC")
	}
	if param.Limit != nil {
		db = db.Limit(*param.Limit)
	}
	if err := db.Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

func (r *forecastRepository) ListBatchesBefore(ctx context.Context, date time.Time, opts ...utils.DBOption) ([]model.ForecastBatch, error) {
	var batches []model.ForecastBatch
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("updated_at < ?", date).
		Order("updated_at ASC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *forecastRepository) DeleteBatch(ctx context.Context, companyID, userID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Delete(&model.ForecastBatch{}).Error
}
