package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ForecastPoint is one predicted day of a (company, user) forecast. All
// points of the current forecast share the BatchID of their ForecastBatch.
type ForecastPoint struct {
	ID             uint            `gorm:"primaryKey"`
	CompanyID      uint            `gorm:"not null;uniqueIndex:idx_forecast_points_owner_date,priority:1"`
	UserID         uint            `gorm:"not null;uniqueIndex:idx_forecast_points_owner_date,priority:2"`
	ForecastDate   datatypes.Date  `gorm:"not null;uniqueIndex:idx_forecast_points_owner_date,priority:3"`
	PredictedPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	LowerBound     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	UpperBound     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	BatchID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`

	Company Company `gorm:"foreignKey:CompanyID;references:ID"`
	User    User    `gorm:"foreignKey:UserID;references:ID"`
}

func (ForecastPoint) TableName() string {
	return "forecast_points"
}

// ForecastBatch is the per-(company, user) row a replace locks before it
// touches ForecastPoint rows.
type ForecastBatch struct {
	ID         uint      `gorm:"primaryKey"`
	CompanyID  uint      `gorm:"not null;uniqueIndex:idx_forecast_batches_owner,priority:1"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_forecast_batches_owner,priority:2"`
	BatchID    uuid.UUID `gorm:"type:uuid;not null"`
	PointCount int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (ForecastBatch) TableName() string {
	return "forecast_batches"
}

type GetForecastParam struct {
	CompanyID *uint
	UserID    *uint
	BatchID   *uuid.UUID
	Limit     *int
	// NewestFirst orders by creation time instead of forecast date.
	NewestFirst bool
	DateDesc    bool
	WithUser    bool
}
