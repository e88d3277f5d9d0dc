package model

import (
	"database/sql"
	"time"
)

type User struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Username     string       `gorm:"type:varchar(20);uniqueIndex;not null" json:"username"`
	Email        string       `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	PasswordHash string       `gorm:"type:varchar(255);not null" json:"-"`
	IsSuperuser  bool         `gorm:"not null;default:false" json:"is_superuser"`
	IsActive     bool         `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  sql.NullTime `json:"-"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
