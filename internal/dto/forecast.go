package dto

import (
	"stock-forecast/internal/chart"
	"time"
)

// ForecastRequest is bound from JSON or form values; symbol comes from the path.
type ForecastRequest struct {
	Symbol    string `param:"symbol" validate:"required,max=10"`
	StartDate string `json:"start_date" form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Period    int    `json:"period" form:"period" validate:"omitempty,min=1"`
	Frequency string `json:"frequency" form:"frequency" validate:"omitempty,oneof=D B W"`
}

type ForecastRowResponse struct {
	CompanySymbol  string    `json:"company_symbol,omitempty"`
	Username       string    `json:"username,omitempty"`
	ForecastDate   string    `json:"forecast_date"`
	PredictedPrice string    `json:"predicted_price"`
	LowerBound     string    `json:"lower_bound"`
	UpperBound     string    `json:"upper_bound"`
	CreatedAt      time.Time `json:"created_at"`
}

type ForecastResponse struct {
	CompanyName      string                `json:"company_name"`
	CompanySymbol    string                `json:"company_symbol"`
	LastTrainingDate string                `json:"last_training_date"`
	StartDate        string                `json:"start_date"`
	Period           int                   `json:"period"`
	Frequency        string                `json:"frequency"`
	Notice           string                `json:"notice,omitempty"`
	BatchID          string                `json:"batch_id,omitempty"`
	Chart            *chart.Data           `json:"chart"`
	Rows             []ForecastRowResponse `json:"rows"`
}
