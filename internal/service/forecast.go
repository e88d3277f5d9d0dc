package service

import (
	"context"
	"errors"
	"fmt"
	"stock-forecast/config"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/chart"
	"stock-forecast/internal/contract"
	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/internal/modelstore"
	"stock-forecast/internal/planner"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/timeseries"
	"stock-forecast/pkg/utils"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	recentPredictionLimit = 5
	defaultPredictTimeout = 30 * time.Second
)

// ForecastInput is a forecast request with the caller identified explicitly.
type ForecastInput struct {
	UserID    uint
	Symbol    string
	StartDate string
	Period    int
	Frequency string
}

type ForecastService interface {
	// Forecast runs resolve, plan, predict, replace and serialize for one
	// (company, user) pair.
	Forecast(ctx context.Context, in ForecastInput) (*dto.ForecastResponse, error)
	// Stored returns the caller's persisted forecast, newest forecast date first.
	Stored(ctx context.Context, userID uint, symbol string, limit int) (*dto.ForecastResponse, error)
	Recent(ctx context.Context, userID uint) ([]dto.ForecastRowResponse, error)
	All(ctx context.Context, limit int) ([]dto.ForecastRowResponse, error)
}

type forecastService struct {
	cfg          *config.Config
	log          *logger.Logger
	store        modelstore.Store
	planner      planner.Planner
	companyRepo  repository.CompanyRepository
	forecastRepo repository.ForecastRepository
	persistence  repository.ForecastPersistence
	now          func() time.Time
}

func NewForecastService(
	cfg *config.Config,
	log *logger.Logger,
	store modelstore.Store,
	planner planner.Planner,
	companyRepo repository.CompanyRepository,
	forecastRepo repository.ForecastRepository,
	persistence repository.ForecastPersistence,
) ForecastService {
	return &forecastService{
		cfg:          cfg,
		log:          log,
		store:        store,
		planner:      planner,
		companyRepo:  companyRepo,
		forecastRepo: forecastRepo,
		persistence:  persistence,
		now:          utils.TimeNow,
	}
}

func (s *forecastService) request(in ForecastInput) (planner.Request, error) {
	req := planner.Request{Period: in.Period}

	if in.StartDate == "" {
		req.Start = timeseries.TruncateDay(s.now())
	} else {
		start, err := timeseries.ParseDate(in.StartDate)
		if err != nil {
			return req, fmt.Errorf("start_date %q is not a YYYY-MM-DD date: %w", in.StartDate, apperror.ErrInvalidArgument)
		}
		req.Start = start
	}

	if req.Period == 0 {
		req.Period = s.cfg.Forecast.DefaultPeriod
	}
	if req.Period < 0 {
		return req, fmt.Errorf("period must be positive: %w", apperror.ErrInvalidArgument)
	}
	if maxPeriod := s.cfg.Forecast.MaxPeriod; maxPeriod > 0 && req.Period > maxPeriod {
		return req, fmt.Errorf("period %d exceeds the maximum of %d: %w", req.Period, maxPeriod, apperror.ErrInvalidArgument)
	}

	freq := in.Frequency
	if freq == "" {
		freq = s.cfg.Forecast.DefaultFrequency
	}
	parsed, err := timeseries.ParseFrequency(freq)
	if err != nil {
		return req, fmt.Errorf("frequency must be one of %v, got %v: %w", timeseries.SupportedFrequencies(), err, apperror.ErrInvalidArgument)
	}
	req.Frequency = parsed
	return req, nil
}

func (s *forecastService) company(ctx context.Context, symbol string) (*model.Company, error) {
	company, err := s.companyRepo.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company %q: %w", symbol, apperror.ErrNotFound)
	}
	return company, nil
}

func (s *forecastService) Forecast(ctx context.Context, in ForecastInput) (*dto.ForecastResponse, error) {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	req, err := s.request(in)
	if err != nil {
		return nil, err
	}

	f, err := s.store.Resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}
	company, err := s.company(ctx, symbol)
	if err != nil {
		return nil, err
	}

	plan, err := s.planner.Plan(ctx, f, f.LastTrainingDate(), req)
	if err != nil {
		return nil, err
	}

	preds, err := s.predict(ctx, f, plan.Timestamps)
	if err != nil {
		return nil, err
	}

	points, comp := chart.FromPredictions(preds)
	data, err := chart.Serialize(points, comp)
	if err != nil {
		return nil, err
	}

	// cancellation is honoured up to here; the replace runs detached from the caller
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("forecast cancelled before persisting: %w", err)
	}

	rows := toForecastPoints(points)
	batchID, err := s.replace(context.WithoutCancel(ctx), company.ID, in.UserID, rows)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Forecast stored",
		logger.StringField("symbol", symbol),
		logger.UintField("user_id", in.UserID),
		logger.DateField("effective_start", plan.EffectiveStart),
		logger.IntField("period", req.Period),
		logger.StringField("frequency", req.Frequency.String()),
		logger.StringField("batch_id", batchID.String()),
	)

	return &dto.ForecastResponse{
		CompanyName:      company.Name,
		CompanySymbol:    company.Symbol,
		LastTrainingDate: timeseries.FormatDate(plan.LastTrainingDate),
		StartDate:        timeseries.FormatDate(plan.EffectiveStart),
		Period:           req.Period,
		Frequency:        req.Frequency.String(),
		Notice:           plan.Notice,
		BatchID:          batchID.String(),
		Chart:            data,
		Rows:             s.storedRows(context.WithoutCancel(ctx), company, in.UserID, batchID, rows),
	}, nil
}

// storedRows reads back the committed batch newest forecast date first. If a
// later replace already swapped it out, the in-memory rows are used instead.
func (s *forecastService) storedRows(ctx context.Context, company *model.Company, userID uint, batchID uuid.UUID, rows []model.ForecastPoint) []dto.ForecastRowResponse {
	stored, err := s.forecastRepo.Get(ctx, &model.GetForecastParam{
		CompanyID: &company.ID,
		UserID:    &userID,
		BatchID:   &batchID,
		DateDesc:  true,
		WithUser:  true,
	})
	if err == nil && len(stored) == len(rows) {
		return toRowResponses(stored)
	}
	if err != nil {
		s.log.WarnContext(ctx, "Failed to read back stored forecast", logger.ErrorField(err))
	}

	out := make([]dto.ForecastRowResponse, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		rows[i].Company = *company
		out = append(out, toRowResponse(&rows[i]))
	}
	return out
}

// predict bounds the forecaster call by the configured timeout.
func (s *forecastService) predict(ctx context.Context, f contract.Predictor, ts []time.Time) ([]contract.Prediction, error) {
	timeout := s.cfg.Forecast.PredictTimeout
	if timeout <= 0 {
		timeout = defaultPredictTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		preds []contract.Prediction
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("forecaster panic: %v", r)}
			}
		}()
		preds, err := f.Predict(pctx, ts)
		done <- result{preds: preds, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("predict: %w", ctx.Err())
			}
			return nil, fmt.Errorf("predict: %v: %w", r.err, apperror.ErrPredictionFailed)
		}
		if len(r.preds) != len(ts) {
			return nil, fmt.Errorf("predict returned %d rows for %d timestamps: %w", len(r.preds), len(ts), apperror.ErrPredictionFailed)
		}
		return r.preds, nil
	case <-pctx.Done():
		if ctx.Err() != nil {
			return nil, fmt.Errorf("predict: %w", ctx.Err())
		}
		return nil, fmt.Errorf("predict timed out after %s: %w", timeout, apperror.ErrPredictionFailed)
	}
}

// replace retries a failed transaction once.
func (s *forecastService) replace(ctx context.Context, companyID, userID uint, rows []model.ForecastPoint) (batchID uuid.UUID, err error) {
	for attempt := 1; attempt <= 2; attempt++ {
		batchID, err = s.persistence.Replace(ctx, companyID, userID, rows)
		if err == nil || !errors.Is(err, apperror.ErrPersistenceFailed) {
			return batchID, err
		}
		s.log.WarnContext(ctx, "Forecast replace failed",
			logger.IntField("attempt", attempt),
			logger.UintField("company_id", companyID),
			logger.UintField("user_id", userID),
			logger.ErrorField(err),
		)
	}
	return batchID, err
}

func toForecastPoints(points []chart.Point) []model.ForecastPoint {
	rows := make([]model.ForecastPoint, len(points))
	for i, p := range points {
		rows[i] = model.ForecastPoint{
			ForecastDate:   datatypes.Date(timeseries.TruncateDay(p.Date)),
			PredictedPrice: decimal.NewFromFloat(p.Predicted).Round(2),
			LowerBound:     decimal.NewFromFloat(p.Lower).Round(2),
			UpperBound:     decimal.NewFromFloat(p.Upper).Round(2),
		}
	}
	return rows
}

func toRowResponse(p *model.ForecastPoint) dto.ForecastRowResponse {
	return dto.ForecastRowResponse{
		CompanySymbol:  p.Company.Symbol,
		Username:       p.User.Username,
		ForecastDate:   timeseries.FormatDate(time.Time(p.ForecastDate)),
		PredictedPrice: p.PredictedPrice.StringFixed(2),
		LowerBound:     p.LowerBound.StringFixed(2),
		UpperBound:     p.UpperBound.StringFixed(2),
		CreatedAt:      p.CreatedAt,
	}
}

func (s *forecastService) Stored(ctx context.Context, userID uint, symbol string, limit int) (*dto.ForecastResponse, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	company, err := s.company(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.Forecast.DefaultPeriod
	}

	rows, err := s.forecastRepo.Get(ctx, &model.GetForecastParam{
		CompanyID: &company.ID,
		UserID:    &userID,
		DateDesc:  true,
		Limit:     &limit,
		WithUser:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load stored forecast: %w", err)
	}

	// chart runs in ascending date order, the table newest first
	points := make([]chart.Point, len(rows))
	for i := range rows {
		r := &rows[len(rows)-1-i]
		points[i] = chart.Point{
			Date:      time.Time(r.ForecastDate),
			Predicted: r.PredictedPrice.InexactFloat64(),
			Lower:     r.LowerBound.InexactFloat64(),
			Upper:     r.UpperBound.InexactFloat64(),
		}
	}
	data, err := chart.Serialize(points, chart.Components{})
	if err != nil {
		return nil, err
	}

	resp := &dto.ForecastResponse{
		CompanyName:   company.Name,
		CompanySymbol: company.Symbol,
		Period:        len(rows),
		Chart:         data,
		Rows:          make([]dto.ForecastRowResponse, 0, len(rows)),
	}
	if len(points) > 0 {
		resp.StartDate = timeseries.FormatDate(points[0].Date)
	}
	if f, err := s.store.Resolve(ctx, symbol); err == nil {
		resp.LastTrainingDate = timeseries.FormatDate(f.LastTrainingDate())
	} else {
		s.log.DebugContext(ctx, "Model unavailable for stored forecast", logger.StringField("symbol", symbol), logger.ErrorField(err))
	}
	for i := range rows {
		resp.Rows = append(resp.Rows, toRowResponse(&rows[i]))
	}
	return resp, nil
}

func (s *forecastService) Recent(ctx context.Context, userID uint) ([]dto.ForecastRowResponse, error) {
	rows, err := s.forecastRepo.Get(ctx, &model.GetForecastParam{
		UserID:      &userID,
		NewestFirst: true,
		Limit:       utils.ToPointer(recentPredictionLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent predictions: %w", err)
	}
	return toRowResponses(rows), nil
}

func (s *forecastService) All(ctx context.Context, limit int) ([]dto.ForecastRowResponse, error) {
	param := &model.GetForecastParam{NewestFirst: true, WithUser: true}
	if limit > 0 {
		param.Limit = &limit
	}
	rows, err := s.forecastRepo.Get(ctx, param)
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}
	return toRowResponses(rows), nil
}

func toRowResponses(rows []model.ForecastPoint) []dto.ForecastRowResponse {
	out := make([]dto.ForecastRowResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toRowResponse(&rows[i]))
	}
	return out
}
