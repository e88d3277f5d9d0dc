package service

import (
	"context"
	"errors"
	"fmt"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/internal/modelstore"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type CompanyService interface {
	List(ctx context.Context) ([]dto.CompanyResponse, error)
	Detail(ctx context.Context, symbol string) (*dto.CompanyDetailResponse, error)
	Create(ctx context.Context, req dto.CompanyRequest) (*dto.CompanyResponse, error)
	Update(ctx context.Context, symbol string, req dto.UpdateCompanyRequest) (*dto.CompanyResponse, error)
	// Seed get-or-creates the default companies and reports how many were new.
	Seed(ctx context.Context, companies []model.Company) (int, error)
}

type companyService struct {
	log         *logger.Logger
	companyRepo repository.CompanyRepository
	reviewRepo  repository.ReviewRepository
	store       modelstore.Store
}

func NewCompanyService(log *logger.Logger, companyRepo repository.CompanyRepository, reviewRepo repository.ReviewRepository, store modelstore.Store) CompanyService {
	return &companyService{
		log:         log,
		companyRepo: companyRepo,
		reviewRepo:  reviewRepo,
		store:       store,
	}
}

func toCompanyResponse(c *model.Company) dto.CompanyResponse {
	return dto.CompanyResponse{
		ID:          c.ID,
		Symbol:      c.Symbol,
		Name:        c.Name,
		Description: c.Description,
	}
}

func toReviewResponse(r *model.Review) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:        r.ID,
		Username:  r.User.Username,
		Rating:    r.Rating,
		Comment:   r.Comment,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *companyService) List(ctx context.Context) ([]dto.CompanyResponse, error) {
	companies, err := s.companyRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	out := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		out = append(out, toCompanyResponse(&companies[i]))
	}
	return out, nil
}

func (s *companyService) getCompany(ctx context.Context, symbol string) (*model.Company, error) {
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

func (s *companyService) Detail(ctx context.Context, symbol string) (*dto.CompanyDetailResponse, error) {
	company, err := s.getCompany(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var (
		rating  *model.CompanyRating
		reviews []model.Review
		ready   bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rating, err = s.reviewRepo.Rating(gctx, company.ID)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = s.reviewRepo.ListByCompany(gctx, company.ID)
		return err
	})
	g.Go(func() error {
		_, err := s.store.Resolve(gctx, company.Symbol)
		ready = err == nil
		if err != nil {
			s.log.DebugContext(gctx, "Model not ready", logger.StringField("symbol", company.Symbol), logger.ErrorField(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load company detail: %w", err)
	}

	resp := &dto.CompanyDetailResponse{
		CompanyResponse: toCompanyResponse(company),
		AverageRating:   rating.Average,
		ReviewCount:     rating.Count,
		Reviews:         make([]dto.ReviewResponse, 0, len(reviews)),
		ModelReady:      ready,
	}
	for i := range reviews {
		resp.Reviews = append(resp.Reviews, toReviewResponse(&reviews[i]))
	}
	return resp, nil
}

func (s *companyService) Create(ctx context.Context, req dto.CompanyRequest) (*dto.CompanyResponse, error) {
	company := &model.Company{
		Symbol:      strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := s.companyRepo.Create(ctx, company); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("company %q already exists: %w", company.Symbol, apperror.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	s.log.InfoContext(ctx, "Company created", logger.StringField("symbol", company.Symbol))
	resp := toCompanyResponse(company)
	return &resp, nil
}

func (s *companyService) Update(ctx context.Context, symbol string, req dto.UpdateCompanyRequest) (*dto.CompanyResponse, error) {
	company, err := s.getCompany(ctx, symbol)
	if err != nil {
		return nil, err
	}
	company.Name = strings.TrimSpace(req.Name)
	company.Description = req.Description
	if err := s.companyRepo.Update(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	resp := toCompanyResponse(company)
	return &resp, nil
}

func (s *companyService) Seed(ctx context.Context, companies []model.Company) (int, error) {
	created := 0
	for i := range companies {
		ok, err := s.companyRepo.FirstOrCreate(ctx, &companies[i])
		if err != nil {
			return created, fmt.Errorf("failed to seed company %s: %w", companies[i].Symbol, err)
		}
		if ok {
			created++
			s.log.InfoContext(ctx, "Company seeded", logger.StringField("symbol", companies[i].Symbol))
		}
	}
	return created, nil
}

// DefaultCompanies are the companies a forecast model ships for.
func DefaultCompanies() []model.Company {
	return []model.Company{
		{Symbol: "AAPL", Name: "Apple Inc.", Description: "Technology company specializing in consumer electronics"},
		{Symbol: "AMD", Name: "Advanced Micro Devices", Description: "Semiconductor company"},
		{Symbol: "FB", Name: "Facebook (Meta)", Description: "Social media and technology company"},
		{Symbol: "INTC", Name: "Intel Corporation", Description: "Semiconductor and technology company"},
	}
}
