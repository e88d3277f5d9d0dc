// Package chart flattens forecast rows into chart-ready series.
package chart

import (
	"fmt"
	"math"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/contract"
	"stock-forecast/pkg/timeseries"
	"time"
)

type Point struct {
	Date      time.Time
	Predicted float64
	Lower     float64
	Upper     float64
}

// Components are the decomposed model effects. A nil series is omitted from
// the output; a non-nil one must be aligned with the points.
type Components struct {
	Trend  []float64
	Weekly []float64
	Yearly []float64
}

// Data is positionally aligned: every series has one value per entry of Dates.
type Data struct {
	Dates     []string  `json:"dates"`
	Predicted []float64 `json:"predicted"`
	Upper     []float64 `json:"upper"`
	Lower     []float64 `json:"lower"`
	Trend     []float64 `json:"trend,omitempty"`
	Weekly    []float64 `json:"weekly,omitempty"`
	Yearly    []float64 `json:"yearly,omitempty"`
}

func (d *Data) Len() int {
	return len(d.Dates)
}

// FromPredictions splits forecaster output into points and components.
func FromPredictions(preds []contract.Prediction) ([]Point, Components) {
	points := make([]Point, len(preds))
	comp := Components{
		Trend:  make([]float64, len(preds)),
		Weekly: make([]float64, len(preds)),
		Yearly: make([]float64, len(preds)),
	}
	for i, p := range preds {
		points[i] = Point{Date: p.Time, Predicted: p.Yhat, Lower: p.Lower, Upper: p.Upper}
		comp.Trend[i] = p.Trend
		comp.Weekly[i] = p.Weekly
		comp.Yearly[i] = p.Yearly
	}
	return points, comp
}

// Serialize is pure: it never mutates its input and fails with
// apperror.ErrValidation instead of truncating malformed input.
func Serialize(points []Point, comp Components) (*Data, error) {
	n := len(points)
	out := &Data{
		Dates:     make([]string, n),
		Predicted: make([]float64, n),
		Upper:     make([]float64, n),
		Lower:     make([]float64, n),
	}
	for i, p := range points {
		if p.Date.IsZero() {
			return nil, fmt.Errorf("point %d has no date: %w", i, apperror.ErrValidation)
		}
		if err := finite(i, p.Predicted, p.Lower, p.Upper); err != nil {
			return nil, err
		}
		out.Dates[i] = timeseries.FormatDate(p.Date)
		out.Predicted[i] = p.Predicted
		out.Upper[i] = p.Upper
		out.Lower[i] = p.Lower
	}

	var err error
	if out.Trend, err = series("trend", comp.Trend, n); err != nil {
		return nil, err
	}
	if out.Weekly, err = series("weekly", comp.Weekly, n); err != nil {
		return nil, err
	}
	if out.Yearly, err = series("yearly", comp.Yearly, n); err != nil {
		return nil, err
	}
	return out, nil
}

func series(name string, values []float64, n int) ([]float64, error) {
	if values == nil {
		return nil, nil
	}
	if len(values) != n {
		return nil, fmt.Errorf("%s has %d values for %d dates: %w", name, len(values), n, apperror.ErrValidation)
	}
	out := make([]float64, n)
	for i, v := range values {
		if err := finite(i, v); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[i] = v
	}
	return out, nil
}

func finite(i int, values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value at position %d: %w", i, apperror.ErrValidation)
		}
	}
	return nil
}
