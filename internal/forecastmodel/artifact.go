// Package forecastmodel loads the on-disk forecast artifacts and evaluates them.
package forecastmodel

import (
	"errors"
	"fmt"
	"os"
	"stock-forecast/pkg/timeseries"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	KindAdditive = "additive"
	KindRemote   = "remote"
)

var (
	ErrUnknownKind       = errors.New("unknown artifact kind")
	ErrMissingTrainEnd   = errors.New("artifact has no train_end, cannot project future timestamps")
	ErrMissingComponents = errors.New("artifact has no trend component, cannot predict")
	ErrMissingEndpoint   = errors.New("remote artifact has no endpoint, cannot predict")
)

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := timeseries.ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q, %w", s, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + timeseries.FormatDate(d.Time) + `"`), nil
}

// Changepoint adds SlopeDelta to the trend slope from At onward.
type Changepoint struct {
	At         Date    `json:"at"`
	SlopeDelta float64 `json:"slope_delta"`
}

// Trend is piecewise linear in days relative to the training cutoff.
type Trend struct {
	Intercept    float64       `json:"intercept"`
	Slope        float64       `json:"slope"`
	Changepoints []Changepoint `json:"changepoints,omitempty"`
}

// Fourier is a seasonal component sum_k sin_k*sin(2πkx/P) + cos_k*cos(2πkx/P),
// x being days since the unix epoch.
type Fourier struct {
	PeriodDays float64   `json:"period_days"`
	Sin        []float64 `json:"sin"`
	Cos        []float64 `json:"cos"`
}

// Uncertainty widens the band linearly with the distance from the cutoff.
type Uncertainty struct {
	Zscore float64 `json:"zscore"`
	Sigma  float64 `json:"sigma"`
	Growth float64 `json:"growth"`
}

// Artifact is the serialized form of a fitted model.
type Artifact struct {
	Kind             string               `json:"kind"`
	Symbol           string               `json:"symbol"`
	HistoryStart     Date                 `json:"history_start"`
	HistoryFrequency timeseries.Frequency `json:"history_frequency"`
	TrainEnd         Date                 `json:"train_end"`
	// MaxHorizon bounds, in calendar days past TrainEnd, how far the model
	// can project. Zero means unbounded.
	MaxHorizon  int          `json:"max_horizon,omitempty"`
	Trend       *Trend       `json:"trend,omitempty"`
	Weekly      *Fourier     `json:"weekly,omitempty"`
	Yearly      *Fourier     `json:"yearly,omitempty"`
	Uncertainty *Uncertainty `json:"uncertainty,omitempty"`
	Endpoint    string       `json:"endpoint,omitempty"`
	APIToken    string       `json:"api_token,omitempty"`
}

// ReadArtifact decodes the artifact stored at path.
func ReadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("unable to decode artifact %s, %w", path, err)
	}
	if a.HistoryFrequency == "" {
		a.HistoryFrequency = timeseries.BusinessDay
	}
	return &a, nil
}

// WriteArtifact is the inverse of ReadArtifact.
func WriteArtifact(path string, a *Artifact) error {
	raw, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
