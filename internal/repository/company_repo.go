package repository

import (
	"context"
	"errors"
	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"

	"gorm.io/gorm"
)

type CompanyRepository interface {
	List(ctx context.Context, opts ...utils.DBOption) ([]model.Company, error)
	GetBySymbol(ctx context.Context, symbol string, opts ...utils.DBOption) (*model.Company, error)
	GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Company, error)
	Create(ctx context.Context, company *model.Company, opts ...utils.DBOption) error
	Update(ctx context.Context, company *model.Company, opts ...utils.DBOption) error
	// FirstOrCreate inserts company unless its symbol exists and reports whether it did.
	FirstOrCreate(ctx context.Context, company *model.Company, opts ...utils.DBOption) (bool, error)
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) List(ctx context.Context, opts ...utils.DBOption) ([]model.Company, error) {
	var companies []model.Company
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Order("symbol ASC").Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *companyRepository) GetBySymbol(ctx context.Context, symbol string, opts ...utils.DBOption) (*model.Company, error) {
	var company model.Company
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Where("symbol = ?", symbol).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Company, error) {
	var company model.Company
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&company, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) Create(ctx context.Context, company *model.Company, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(company).Error
}

func (r *companyRepository) Update(ctx context.Context, company *model.Company, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(company).
		Select("name", "description").
		Updates(company).Error
}

func (r *companyRepository) FirstOrCreate(ctx context.Context, company *model.Company, opts ...utils.DBOption) (bool, error) {
	existing, err := r.GetBySymbol(ctx, company.Symbol, opts...)
	if err != nil {
		return false, err
	}
	if existing != nil {
		*company = *existing
		return false, nil
	}
	if err := r.Create(ctx, company, opts...); err != nil {
		return false, err
	}
	return true, nil
}
