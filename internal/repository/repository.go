package repository

import (
	"gorm.io/gorm"
)

type Repository struct {
	UserRepo            UserRepository
	CompanyRepo         CompanyRepository
	ReviewRepo          ReviewRepository
	ForecastRepo        ForecastRepository
	ForecastPersistence ForecastPersistence
	JobRepo             JobRepository
	UnitOfWork          UnitOfWork
}

func NewRepository(db *gorm.DB) *Repository {
	uow := NewUnitOfWork(db)
	forecastRepo := NewForecastRepository(db)

	return &Repository{
		UserRepo:            NewUserRepository(db),
		CompanyRepo:         NewCompanyRepository(db),
		ReviewRepo:          NewReviewRepository(db),
		ForecastRepo:        forecastRepo,
		ForecastPersistence: NewForecastPersistence(uow, forecastRepo),
		JobRepo:             NewJobRepository(db),
		UnitOfWork:          uow,
	}
}
