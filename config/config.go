package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log        Logger     `mapstructure:"logger"`
	DB         Database   `mapstructure:"database"`
	API        API        `mapstructure:"api"`
	Cache      Cache      `mapstructure:"cache"`
	ModelStore ModelStore `mapstructure:"model_store"`
	Forecast   Forecast   `mapstructure:"forecast"`
	Scheduler  Scheduler  `mapstructure:"scheduler"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port           int           `mapstructure:"port"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// ModelStore locates the per-company forecast artifacts on disk.
type ModelStore struct {
	Dir         string        `mapstructure:"dir"`
	FilePattern string        `mapstructure:"file_pattern"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	Symbols     []string      `mapstructure:"symbols"`

	// RemoteTimeout applies to artifacts that delegate prediction to an external service.
	RemoteTimeout time.Duration `mapstructure:"remote_timeout"`
}

type Forecast struct {
	PredictTimeout   time.Duration `mapstructure:"predict_timeout"`
	MaxPeriod        int           `mapstructure:"max_period"`
	MaxExtendRounds  int           `mapstructure:"max_extend_rounds"`
	DefaultFrequency string        `mapstructure:"default_frequency"`
	DefaultPeriod    int           `mapstructure:"default_period"`

	// MaxStartAheadDays bounds start_date relative to the model's training cutoff.
	MaxStartAheadDays int `mapstructure:"max_start_ahead_days"`
}

type Scheduler struct {
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	TimeoutDuration time.Duration `mapstructure:"timeout_duration"`
	Jobs            []Job         `mapstructure:"jobs"`
}

// Job is registered into the jobs table by the seed command.
type Job struct {
	Name        string         `mapstructure:"name"`
	Description string         `mapstructure:"description"`
	Type        string         `mapstructure:"type"`
	Spec        string         `mapstructure:"spec"`
	Timeout     time.Duration  `mapstructure:"timeout"`
	Payload     map[string]any `mapstructure:"payload"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.log_level", "Warn")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.jwt_ttl", 24*time.Hour)
	v.SetDefault("api.rate_limit", 10)
	v.SetDefault("api.rate_limit_burst", 30)
	v.SetDefault("api.bcrypt_cost", 10)

	v.SetDefault("cache.default_expiration", time.Hour)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	v.SetDefault("model_store.dir", "models")
	v.SetDefault("model_store.file_pattern", "forecast_model_%s.json")
	v.SetDefault("model_store.cache_ttl", time.Hour)
	v.SetDefault("model_store.symbols", []string{"AAPL", "FB", "AMD", "INTC"})
	v.SetDefault("model_store.remote_timeout", 30*time.Second)

	v.SetDefault("forecast.predict_timeout", 30*time.Second)
	v.SetDefault("forecast.max_period", 365)
	v.SetDefault("forecast.max_extend_rounds", 8)
	v.SetDefault("forecast.default_frequency", "D")
	v.SetDefault("forecast.default_period", 30)
	v.SetDefault("forecast.max_start_ahead_days", 3650)

	v.SetDefault("scheduler.max_concurrency", 2)
	v.SetDefault("scheduler.timeout_duration", 5*time.Minute)
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.API.JWTSecret == "" {
		return nil, fmt.Errorf("api.jwt_secret is required")
	}

	return &cfg, nil
}
