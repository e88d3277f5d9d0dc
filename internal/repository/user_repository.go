package repository

import (
	"context"
	"errors"
	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"
	"time"

	"gorm.io/gorm"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.User, error)
	GetByUsername(ctx context.Context, username string, opts ...utils.DBOption) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string, opts ...utils.DBOption) (usernameTaken, emailTaken bool, err error)
	CreateUser(ctx context.Context, user *model.User, opts ...utils.DBOption) error
	UpdateLastLogin(ctx context.Context, id uint, at time.Time, opts ...utils.DBOption) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

// GetByID returns nil, nil when the user does not exist.
func (r *userRepository) GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.User, error) {
	var user model.User
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

// GetByUsername returns nil, nil when the user does not exist.
func (r *userRepository) GetByUsername(ctx context.Context, username string, opts ...utils.DBOption) (*model.User, error) {
	var user model.User
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

	result := tx.Where("username = ?", username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, result.Error
	}

	return &user, nil
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string, opts ...utils.DBOption) (bool, bool, error) {
	var users []model.User
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Select("username", "email").
		Where("username = ? OR email = ?", username, email).
		Find(&users).Error
	if err != nil {
		return false, false, err
	}

	var usernameTaken, emailTaken bool
	for _, u := range users {
		usernameTaken = usernameTaken || u.Username == username
		emailTaken = emailTaken || u.Email == email
	}
	return usernameTaken, emailTaken, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *model.User, opts ...utils.DBOption) error {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return tx.Create(user).Error
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}
