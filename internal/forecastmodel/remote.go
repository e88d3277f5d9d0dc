package forecastmodel

import (
	"context"
	"fmt"
	"stock-forecast/internal/contract"
	"stock-forecast/pkg/httpclient"
	"stock-forecast/pkg/timeseries"
	"time"
)

type remotePredictRequest struct {
	Symbol     string   `json:"symbol"`
	Timestamps []string `json:"timestamps"`
}

type remotePrediction struct {
	DS        string  `json:"ds"`
	Yhat      float64 `json:"yhat"`
	YhatLower float64 `json:"yhat_lower"`
	YhatUpper float64 `json:"yhat_upper"`
	Trend     float64 `json:"trend"`
	Weekly    float64 `json:"weekly"`
	Yearly    float64 `json:"yearly"`
}

type remotePredictResponse struct {
	Predictions []remotePrediction `json:"predictions"`
}

// RemoteModel projects timestamps locally and delegates prediction to an
// external forecasting service.
type RemoteModel struct {
	projector

	symbol string
	client httpclient.HTTPClient
}

func NewRemoteModel(cal *timeseries.Calendar, a *Artifact, timeout time.Duration) (*RemoteModel, error) {
	if a.TrainEnd.IsZero() {
		return nil, ErrMissingTrainEnd
	}
	if a.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	return &RemoteModel{
		projector: newProjector(cal, a),
		symbol:    a.Symbol,
		client:    httpclient.New(a.Endpoint, timeout, a.APIToken),
	}, nil
}

func (m *RemoteModel) Predict(ctx context.Context, ts []time.Time) ([]contract.Prediction, error) {
	req := remotePredictRequest{
		Symbol:     m.symbol,
		Timestamps: make([]string, len(ts)),
	}
	for i, t := range ts {
		req.Timestamps[i] = timeseries.FormatDate(t)
	}

	var resp remotePredictResponse
	if _, err := m.client.Post(ctx, "/predict", req, &resp); err != nil {
		return nil, fmt.Errorf("remote predict for %s, %w", m.symbol, err)
	}
	if len(resp.Predictions) != len(ts) {
		return nil, fmt.Errorf("remote predict for %s returned %d rows for %d timestamps", m.symbol, len(resp.Predictions), len(ts))
	}

	out := make([]contract.Prediction, len(ts))
	for i, p := range resp.Predictions {
		out[i] = contract.Prediction{
			Time:   timeseries.TruncateDay(ts[i]),
			Yhat:   p.Yhat,
			Lower:  p.YhatLower,
			Upper:  p.YhatUpper,
			Trend:  p.Trend,
			Weekly: p.Weekly,
			Yearly: p.Yearly,
		}
	}
	return out, nil
}
