package forecastmodel

import (
	"context"
	"math"
	"stock-forecast/internal/contract"
	"stock-forecast/pkg/timeseries"
	"time"

	"gonum.org/v1/gonum/floats"
)

const secondsPerDay = 24 * 60 * 60

// AdditiveModel evaluates trend + weekly + yearly components with a symmetric
// uncertainty band.
type AdditiveModel struct {
	projector

	symbol      string
	trend       Trend
	weekly      *Fourier
	yearly      *Fourier
	uncertainty Uncertainty
}

func NewAdditiveModel(cal *timeseries.Calendar, a *Artifact) (*AdditiveModel, error) {
	if a.TrainEnd.IsZero() {
		return nil, ErrMissingTrainEnd
	}
	if a.Trend == nil {
		return nil, ErrMissingComponents
	}
	m := &AdditiveModel{
		projector: newProjector(cal, a),
		symbol:    a.Symbol,
		trend:     *a.Trend,
		weekly:    a.Weekly,
		yearly:    a.Yearly,
	}
	if a.Uncertainty != nil {
		m.uncertainty = *a.Uncertainty
	}
	return m, nil
}

func (m *AdditiveModel) Symbol() string {
	return m.symbol
}

func (m *AdditiveModel) Predict(ctx context.Context, ts []time.Time) ([]contract.Prediction, error) {
	out := make([]contract.Prediction, len(ts))
	for i, t := range ts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		t = timeseries.TruncateDay(t)
		trend := m.trendAt(t)
		weekly := m.weekly.valueAt(t)
		yearly := m.yearly.valueAt(t)
		yhat := trend + weekly + yearly
		band := m.bandAt(t)

		out[i] = contract.Prediction{
			Time:   t,
			Yhat:   yhat,
			Lower:  yhat - band,
			Upper:  yhat + band,
			Trend:  trend,
			Weekly: weekly,
			Yearly: yearly,
		}
	}
	return out, nil
}

func (m *AdditiveModel) daysFromCutoff(t time.Time) float64 {
	return t.Sub(m.trainEnd).Hours() / 24
}

func (m *AdditiveModel) trendAt(t time.Time) float64 {
	x := m.daysFromCutoff(t)
	y := m.trend.Intercept + m.trend.Slope*x
	for _, cp := range m.trend.Changepoints {
		xk := m.daysFromCutoff(timeseries.TruncateDay(cp.At.Time))
		if x > xk {
			y += cp.SlopeDelta * (x - xk)
		}
	}
	return y
}

func (m *AdditiveModel) bandAt(t time.Time) float64 {
	x := math.Max(0, m.daysFromCutoff(t))
	band := m.uncertainty.Zscore * (m.uncertainty.Sigma + m.uncertainty.Growth*x)
	return math.Abs(band)
}

func (f *Fourier) valueAt(t time.Time) float64 {
	if f == nil || f.PeriodDays <= 0 {
		return 0
	}
	x := float64(t.Unix()) / secondsPerDay

	orders := len(f.Sin)
	if len(f.Cos) < orders {
		orders = len(f.Cos)
	}
	if orders == 0 {
		return 0
	}
	sinBasis := make([]float64, orders)
	cosBasis := make([]float64, orders)
	for k := 0; k < orders; k++ {
		arg := 2 * math.Pi * float64(k+1) * x / f.PeriodDays
		sinBasis[k] = math.Sin(arg)
		cosBasis[k] = math.Cos(arg)
	}
	return floats.Dot(f.Sin[:orders], sinBasis) + floats.Dot(f.Cos[:orders], cosBasis)
}
