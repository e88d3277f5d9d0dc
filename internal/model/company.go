package model

import "time"

type Company struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Symbol      string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"symbol"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// CompanyRating aggregates the reviews of one company.
type CompanyRating struct {
	CompanyID uint    `json:"company_id"`
	Average   float64 `json:"average"`
	Count     int64   `json:"count"`
}
