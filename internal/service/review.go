package service

import (
	"context"
	"fmt"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
	"strings"
)

type ReviewService interface {
	Upsert(ctx context.Context, userID uint, symbol string, req dto.ReviewRequest) (*dto.ReviewResponse, error)
	List(ctx context.Context, symbol string) ([]dto.ReviewResponse, error)
}

type reviewService struct {
	log         *logger.Logger
	companyRepo repository.CompanyRepository
	reviewRepo  repository.ReviewRepository
}

func NewReviewService(log *logger.Logger, companyRepo repository.CompanyRepository, reviewRepo repository.ReviewRepository) ReviewService {
	return &reviewService{
		log:         log,
		companyRepo: companyRepo,
		reviewRepo:  reviewRepo,
	}
}

func (s *reviewService) company(ctx context.Context, symbol string) (*model.Company, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	company, err := s.companyRepo.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company %q: %w", symbol, apperror.ErrNotFound)
	}
	return company, nil
}

func (s *reviewService) Upsert(ctx context.Context, userID uint, symbol string, req dto.ReviewRequest) (*dto.ReviewResponse, error) {
	if req.Rating < model.MinRating || req.Rating > model.MaxRating {
		return nil, fmt.Errorf("rating must be between %d and %d: %w", model.MinRating, model.MaxRating, apperror.ErrInvalidArgument)
	}
	company, err := s.company(ctx, symbol)
	if err != nil {
		return nil, err
	}

	review, err := s.reviewRepo.Upsert(ctx, &model.Review{
		CompanyID: company.ID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}

	s.log.InfoContext(ctx, "Review saved",
		logger.StringField("symbol", company.Symbol),
		logger.UintField("user_id", userID),
		logger.IntField("rating", review.Rating),
	)
	resp := toReviewResponse(review)
	return &resp, nil
}

func (s *reviewService) List(ctx context.Context, symbol string) ([]dto.ReviewResponse, error) {
	company, err := s.company(ctx, symbol)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.ListByCompany(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	out := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, toReviewResponse(&reviews[i]))
	}
	return out, nil
}
