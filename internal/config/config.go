package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TrialAPIKey はNEWS_API_KEY未設定時に使用する試用キー。
// 試用キーでは1リクエストあたりの取得件数が制限される。
const TrialAPIKey = "trial-0000"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Collector
	NewsAPIKey       string
	NewsAPITrialMode bool
	CollectInterval  time.Duration
	FetchTimeout     time.Duration
	FetchMaxSize     int64
	RequestInterval  time.Duration
	UserAgent        string

	// Task queue
	TaskWorkers   int
	TaskQueueSize int

	// Trend
	TrendWindowDays int

	// Rate Limit
	RateLimitGeneral int
	RateLimitCollect int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// APIキー未設定時は試用キーにフォールバックし、取得能力を落として動かす。
	cfg.NewsAPIKey = os.Getenv("NEWS_API_KEY")
	if cfg.NewsAPIKey == "" {
		cfg.NewsAPIKey = TrialAPIKey
		cfg.NewsAPITrialMode = true
	}

	// Optional fields with defaults
	cfg.CollectInterval = getEnvDuration("COLLECT_INTERVAL", 6*time.Hour)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 15*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.RequestInterval = getEnvDuration("REQUEST_INTERVAL", 2*time.Second)
	cfg.UserAgent = getEnvString("COLLECTOR_USER_AGENT", "ThermocultureResearchBot/1.0")
	cfg.TaskWorkers = getEnvInt("TASK_WORKERS", 4)
	cfg.TaskQueueSize = getEnvInt("TASK_QUEUE_SIZE", 256)
	cfg.TrendWindowDays = getEnvInt("TREND_WINDOW_DAYS", 30)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCollect = getEnvInt("RATE_LIMIT_COLLECT", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
