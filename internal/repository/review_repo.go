package repository

import (
	"context"
	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewRepository interface {
	// Upsert keeps a single review per (company, user); a second call overwrites rating and comment.
	Upsert(ctx context.Context, review *model.Review, opts ...utils.DBOption) (*model.Review, error)
	ListByCompany(ctx context.Context, companyID uint, opts ...utils.DBOption) ([]model.Review, error)
	Rating(ctx context.Context, companyID uint, opts ...utils.DBOption) (*model.CompanyRating, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Upsert(ctx context.Context, review *model.Review, opts ...utils.DBOption) (*model.Review, error) {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
	}).Create(review).Error
	if err != nil {
		return nil, err
	}

	var stored model.Review
	err = db.Where("company_id = ? AND user_id = ?", review.CompanyID, review.UserID).First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *reviewRepository) ListByCompany(ctx context.Context, companyID uint, opts ...utils.DBOption) ([]model.Review, error) {
	var reviews []model.Review
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Preload("User").
		Where("company_id = ?", companyID).
		Order("updated_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) Rating(ctx context.Context, companyID uint, opts ...utils.DBOption) (*model.CompanyRating, error) {
	rating := &model.CompanyRating{CompanyID: companyID}
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("company_id = ?", companyID).
		Scan(rating).Error
	if err != nil {
		return nil, err
	}
	rating.CompanyID = companyID
	return rating, nil
}
