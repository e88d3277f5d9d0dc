package contract

import (
	"context"
	"stock-forecast/pkg/timeseries"
	"time"
)

// Prediction is the forecaster output for one timestamp.
type Prediction struct {
	Time   time.Time
	Yhat   float64
	Lower  float64
	Upper  float64
	Trend  float64
	Weekly float64
	Yearly float64
}

// FutureProjector produces the timestamps that follow the training history.
type FutureProjector interface {
	// ProjectFuture returns periods steps after the training cutoff. With
	// includeHistory the history timestamps known to the model come first.
	ProjectFuture(ctx context.Context, periods int, freq timeseries.Frequency, includeHistory bool) ([]time.Time, error)
}

// Predictor evaluates the model at arbitrary timestamps.
type Predictor interface {
	Predict(ctx context.Context, ts []time.Time) ([]Prediction, error)
}

// Forecaster is a loaded, read-only forecasting model.
type Forecaster interface {
	FutureProjector
	Predictor
	LastTrainingDate() time.Time
}

// FutureExtender is implemented by forecasters that can continue a projection
// from an arbitrary step instead of from the training cutoff.
type FutureExtender interface {
	ProjectAfter(ctx context.Context, after time.Time, periods int, freq timeseries.Frequency) ([]time.Time, error)
}
