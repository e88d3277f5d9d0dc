package dto

type CompanyResponse struct {
	ID          uint   `json:"id"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CompanyDetailResponse struct {
	CompanyResponse
	AverageRating float64          `json:"average_rating"`
	ReviewCount   int64            `json:"review_count"`
	Reviews       []ReviewResponse `json:"reviews"`
	ModelReady    bool             `json:"model_ready"`
}

type CompanyRequest struct {
	Symbol      string `json:"symbol" validate:"required,alphanum,max=10"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type UpdateCompanyRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type DashboardResponse struct {
	User              UserResponse          `json:"user"`
	Companies         []CompanyResponse     `json:"companies"`
	RecentPredictions []ForecastRowResponse `json:"recent_predictions"`
}
