package service

import (
	"context"
	"stock-forecast/internal/dto"

	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	Get(ctx context.Context, userID uint) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	auth      AuthService
	companies CompanyService
	forecasts ForecastService
}

func NewDashboardService(auth AuthService, companies CompanyService, forecasts ForecastService) DashboardService {
	return &dashboardService{
		auth:      auth,
		companies: companies,
		forecasts: forecasts,
	}
}

// Get assembles the signed-in user's landing page: profile, every company and
// the most recent stored predictions.
func (s *dashboardService) Get(ctx context.Context, userID uint) (*dto.DashboardResponse, error) {
	var (
		resp dto.DashboardResponse
		g    errgroup.Group
	)
	g.Go(func() error {
		user, err := s.auth.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		resp.User = ToUserResponse(user)
		return nil
	})
	g.Go(func() error {
		companies, err := s.companies.List(ctx)
		resp.Companies = companies
		return err
	})
	g.Go(func() error {
		recent, err := s.forecasts.Recent(ctx, userID)
		resp.RecentPredictions = recent
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &resp, nil
}
