package strategy

import (
	"context"
	"stock-forecast/internal/model"
	"stock-forecast/internal/modelstore"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/timeseries"
	"sync"

	"golang.org/x/sync/errgroup"
)

const defaultWarmUpConcurrency = 2

type ModelWarmUpPayload struct {
	// Symbols defaults to every supported symbol.
	Symbols     []string `json:"symbols"`
	Concurrency int      `json:"concurrency"`
	// Reload drops cached models first so artifacts changed on disk are picked up.
	Reload bool `json:"reload"`
}

type ModelWarmUpResult struct {
	Symbol           string `json:"symbol"`
	LastTrainingDate string `json:"last_training_date,omitempty"`
	Error            string `json:"error,omitempty"`
}

// ModelWarmUpStrategy loads forecast models into the model store cache ahead
// of user requests.
type ModelWarmUpStrategy struct {
	log   *logger.Logger
	store modelstore.Store
}

func NewModelWarmUpStrategy(log *logger.Logger, store modelstore.Store) JobExecutionStrategy {
	return &ModelWarmUpStrategy{
		log:   log,
		store: store,
	}
}

func (s *ModelWarmUpStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	var payload ModelWarmUpPayload
	if res, err := decodePayload(job, &payload); err != nil {
		s.log.ErrorContext(ctx, "Failed to unmarshal job payload", logger.ErrorField(err), logger.UintField("job_id", job.ID))
		return res, err
	}
	symbols := payload.Symbols
	if len(symbols) == 0 {
		symbols = s.store.Symbols()
	}
	if payload.Concurrency <= 0 {
		payload.Concurrency = defaultWarmUpConcurrency
	}

	results := make([]ModelWarmUpResult, len(symbols))
	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(payload.Concurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			if payload.Reload {
				s.store.Invalidate(symbol)
			}
			results[i] = ModelWarmUpResult{Symbol: symbol}
			f, err := s.store.Resolve(gctx, symbol)
			if err != nil {
				s.log.WarnContext(gctx, "Failed to warm up model", logger.StringField("symbol", symbol), logger.ErrorField(err))
				results[i].Error = err.Error()
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			results[i].LastTrainingDate = timeseries.FormatDate(f.LastTrainingDate())
			return nil
		})
	}
	_ = g.Wait()

	s.log.InfoContext(ctx, "Model warm up finished", logger.IntField("models", len(symbols)), logger.IntField("failed", failed))
	return summarize(results, failed, len(symbols), "no model could be loaded")
}

func (s *ModelWarmUpStrategy) GetType() JobType {
	return JobTypeModelWarmUp
}
