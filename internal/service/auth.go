package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"stock-forecast/config"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/middleware"
	"stock-forecast/pkg/utils"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// ValidatePassword returns every rule the password breaks.
func ValidatePassword(password string) []string {
	var problems []string
	if len(password) < 8 {
		problems = append(problems, "Password must be at least 8 characters long.")
	}
	if !upperRe.MatchString(password) {
		problems = append(problems, "Password must contain at least one uppercase letter.")
	}
	if !lowerRe.MatchString(password) {
		problems = append(problems, "Password must contain at least one lowercase letter.")
	}
	if !digitRe.MatchString(password) {
		problems = append(problems, "Password must contain at least one number.")
	}
	if !specialRe.MatchString(password) {
		problems = append(problems, "Password must contain at least one special character.")
	}
	return problems
}

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error)
	GetUser(ctx context.Context, userID uint) (*model.User, error)
	// IsSuperuser reads the stored flag; an unknown or inactive user is not one.
	IsSuperuser(ctx context.Context, userID uint) (bool, error)
}

type authService struct {
	cfg      *config.Config
	log      *logger.Logger
	userRepo repository.UserRepository
}

func NewAuthService(cfg *config.Config, log *logger.Logger, userRepo repository.UserRepository) AuthService {
	return &authService{
		cfg:      cfg,
		log:      log,
		userRepo: userRepo,
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if req.Password != req.ConfirmPassword {
		return nil, fmt.Errorf("passwords do not match: %w", apperror.ErrInvalidArgument)
	}
	if problems := ValidatePassword(req.Password); len(problems) > 0 {
		return nil, fmt.Errorf("%s: %w", strings.Join(problems, " "), apperror.ErrInvalidArgument)
	}

	usernameTaken, emailTaken, err := s.userRepo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if usernameTaken || emailTaken {
		return nil, fmt.Errorf("username or email already exists: %w", apperror.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.API.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("username or email already exists: %w", apperror.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.InfoContext(ctx, "User registered", logger.UintField("user_id", user.ID), logger.StringField("username", user.Username))
	return user, nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
	}

	token, expiresAt, err := middleware.GenerateJWT(s.cfg.API.JWTSecret, s.cfg.API.JWTTTL, user.ID, user.Username, user.IsSuperuser)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, utils.TimeNow()); err != nil {
		s.log.WarnContext(ctx, "Failed to record last login", logger.ErrorField(err), logger.UintField("user_id", user.ID))
	}

	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}

func (s *authService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, apperror.ErrNotFound)
	}
	return user, nil
}

func ToUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
	}
}

func (s *authService) IsSuperuser(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to find user: %w", err)
	}
	return user != nil && user.IsActive && user.IsSuperuser, nil
}
