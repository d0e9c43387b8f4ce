package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: series archive + forecast history)
	Database DatabaseConfig

	// Redis (optional: stock profile cache)
	Redis RedisConfig

	// Market data
	Yahoo YahooConfig

	// Forecast pipeline
	Forecast ForecastConfig

	// Chart artifacts
	Graphs GraphsConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// YahooConfig holds Yahoo Finance endpoints
type YahooConfig struct {
	ChartURL          string
	QuoteURL          string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// ForecastConfig holds forecast pipeline settings
type ForecastConfig struct {
	HistoryDays int     // 학습용 과거 데이터 기간 (일)
	WindowSize  int     // 슬라이딩 윈도우 길이
	DefaultDays int     // forecast_days 기본값
	MaxDays     int     // forecast_days 상한
	Scaler      string  // minmax, standard
	Parallel    bool    // 두 모델 병렬 학습 여부
	LSTMWeight  float64 // hybrid 가중치 (xgboost = 1 - LSTMWeight)
	ModelConfig string  // 하이퍼파라미터 YAML 경로 (optional)

	// 배치 예측 (scheduler)
	Watchlist []string // FORECAST_WATCHLIST=AAPL,MSFT (비어 있으면 job 미등록)
	Schedule  string   // cron, seconds field first
}

// GraphsConfig holds chart output settings
type GraphsConfig struct {
	Dir             string
	Retention       time.Duration
	CleanupSchedule string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "5000"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Yahoo: YahooConfig{
			ChartURL:          getEnv("YAHOO_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
			QuoteURL:          getEnv("YAHOO_QUOTE_URL", "https://finance.yahoo.com/quote"),
			RequestsPerSecond: getEnvAsFloat("YAHOO_REQUESTS_PER_SECOND", 2),
			Timeout:           getEnvAsDuration("YAHOO_TIMEOUT", "20s"),
		},

		Forecast: ForecastConfig{
			HistoryDays: getEnvAsInt("FORECAST_HISTORY_DAYS", 730),
			WindowSize:  getEnvAsInt("FORECAST_WINDOW_SIZE", 60),
			DefaultDays: getEnvAsInt("FORECAST_DEFAULT_DAYS", 7),
			MaxDays:     getEnvAsInt("FORECAST_MAX_DAYS", 60),
			Scaler:      getEnv("FORECAST_SCALER", "minmax"),
			Parallel:    getEnvAsBool("FORECAST_PARALLEL", false),
			LSTMWeight:  getEnvAsFloat("FORECAST_LSTM_WEIGHT", 0.5),
			ModelConfig: getEnv("FORECAST_MODEL_CONFIG", ""),
			Watchlist:   getEnvAsList("FORECAST_WATCHLIST"),
			Schedule:    getEnv("FORECAST_SCHEDULE", "0 30 18 * * 1-5"),
		},

		Graphs: GraphsConfig{
			Dir:             getEnv("GRAPHS_DIR", "graphs"),
			Retention:       getEnvAsDuration("GRAPHS_RETENTION", "24h"),
			CleanupSchedule: getEnv("GRAPHS_CLEANUP_SCHEDULE", "0 0 * * * *"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Forecast.Scaler != "minmax" && c.Forecast.Scaler != "standard" {
		return fmt.Errorf("FORECAST_SCALER must be one of: minmax, standard")
	}

	if c.Forecast.WindowSize < 1 {
		return fmt.Errorf("FORECAST_WINDOW_SIZE must be >= 1")
	}

	if c.Forecast.DefaultDays < 1 || c.Forecast.DefaultDays > c.Forecast.MaxDays {
		return fmt.Errorf("FORECAST_DEFAULT_DAYS must be in [1, FORECAST_MAX_DAYS]")
	}

	if c.Forecast.HistoryDays <= c.Forecast.WindowSize {
		return fmt.Errorf("FORECAST_HISTORY_DAYS must exceed FORECAST_WINDOW_SIZE")
	}

	if c.Forecast.LSTMWeight < 0 || c.Forecast.LSTMWeight > 1 {
		return fmt.Errorf("FORECAST_LSTM_WEIGHT must be in [0, 1]")
	}

	if c.Graphs.Retention <= 0 {
		return fmt.Errorf("GRAPHS_RETENTION must be > 0")
	}

	if c.Yahoo.RequestsPerSecond <= 0 {
		return fmt.Errorf("YAHOO_REQUESTS_PER_SECOND must be > 0")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsList splits a comma separated value, upper-casing and dropping blanks
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.ToUpper(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
