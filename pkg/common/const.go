package common

// Cache keys shared by the in-memory cache users.
const (
	KEY_FORECAST_MODEL = "forecast_model:%s"
)
