// Package modelstore resolves a company symbol to a loaded Forecaster.
package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"stock-forecast/config"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/contract"
	"stock-forecast/pkg/cache"
	"stock-forecast/pkg/common"
	"stock-forecast/pkg/logger"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadFunc deserializes the artifact at path into a model value.
type LoadFunc func(path string) (any, error)

type Store interface {
	Resolve(ctx context.Context, symbol string) (contract.Forecaster, error)
	Symbols() []string
	Invalidate(symbol string)
}

type store struct {
	dir         string
	filePattern string
	ttl         time.Duration
	symbols     map[string]struct{}
	ordered     []string
	load        LoadFunc
	cache       cache.Cache
	log         *logger.Logger

	// loading collapses concurrent loads of one symbol into a single deserialization.
	loading singleflight.Group
}

func New(cfg config.ModelStore, load LoadFunc, c cache.Cache, log *logger.Logger) Store {
	s := &store{
		dir:         cfg.Dir,
		filePattern: cfg.FilePattern,
		ttl:         cfg.CacheTTL,
		symbols:     make(map[string]struct{}, len(cfg.Symbols)),
		load:        load,
		cache:       c,
		log:         log,
	}
	if s.filePattern == "" {
		s.filePattern = "forecast_model_%s.json"
	}
	for _, sym := range cfg.Symbols {
		sym = normalize(sym)
		if _, dup := s.symbols[sym]; dup {
			continue
		}
		s.symbols[sym] = struct{}{}
		s.ordered = append(s.ordered, sym)
	}
	return s
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s *store) Symbols() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Path is the deterministic artifact location for symbol.
func (s *store) Path(symbol string) string {
	return filepath.Join(s.dir, fmt.Sprintf(s.filePattern, normalize(symbol)))
}

func (s *store) Invalidate(symbol string) {
	s.cache.Delete(fmt.Sprintf(common.KEY_FORECAST_MODEL, normalize(symbol)))
}

func (s *store) Resolve(ctx context.Context, symbol string) (contract.Forecaster, error) {
	symbol = normalize(symbol)
	if _, ok := s.symbols[symbol]; !ok {
		return nil, fmt.Errorf("no model for company %q: %w", symbol, apperror.ErrNotFound)
	}

	key := fmt.Sprintf(common.KEY_FORECAST_MODEL, symbol)
	if f, ok := cache.GetFromCache[contract.Forecaster](s.cache, key); ok {
		return f, nil
	}

	v, err, _ := s.loading.Do(symbol, func() (any, error) {
		if f, ok := cache.GetFromCache[contract.Forecaster](s.cache, key); ok {
			return f, nil
		}
		return s.loadModel(ctx, symbol, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(contract.Forecaster), nil
}

func (s *store) loadModel(ctx context.Context, symbol, key string) (contract.Forecaster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(symbol)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("model file for %s not found at %s: %w", symbol, path, apperror.ErrNotAvailable)
		}
		return nil, fmt.Errorf("stat model file for %s: %v: %w", symbol, err, apperror.ErrNotAvailable)
	}

	start := time.Now()
	raw, err := s.load(path)
	if err != nil {
		return nil, fmt.Errorf("error loading model for %s: %v: %w", symbol, err, apperror.ErrInvalidModel)
	}
	f, err := validate(raw)
	if err != nil {
		return nil, fmt.Errorf("error loading model for %s: %w", symbol, err)
	}

	s.cache.Set(key, f, s.ttl)
	s.log.InfoContext(ctx, "Forecast model loaded",
		logger.StringField("symbol", symbol),
		logger.StringField("path", path),
		logger.DateField("last_training_date", f.LastTrainingDate()),
		logger.DurationField("took", time.Since(start)),
	)
	return f, nil
}

// validate checks that a loaded value exposes both forecaster capabilities.
func validate(model any) (contract.Forecaster, error) {
	var missing []string
	if _, ok := model.(contract.FutureProjector); !ok {
		missing = append(missing, "ProjectFuture")
	}
	if _, ok := model.(contract.Predictor); !ok {
		missing = append(missing, "Predict")
	}
	f, ok := model.(contract.Forecaster)
	if !ok && len(missing) == 0 {
		missing = append(missing, "LastTrainingDate")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required capabilities %v: %w", missing, apperror.ErrInvalidModel)
	}
	return f, nil
}
