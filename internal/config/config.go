package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config centralizes runtime settings for the API, workers and the feedback
// scheduler.
type Config struct {
	Port string

	AuthToken string

	DatabaseURL string

	AdapterAPIKey     string
	AdapterBaseURL    string
	AdapterTimeoutMS  int
	AdapterMaxRetries int
	AdapterModel      string

	GenCacheTTLSeconds int
	GenCacheMaxEntries int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisDLQ      string
	RedisGroup    string
	RedisConsumer string

	CORSAllowedOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	WorkerEnabled bool
	WorkerCount   int

	JobTimeoutSignalRefresh   time.Duration
	JobTimeoutCampaign        time.Duration
	JobTimeoutStrategy        time.Duration
	JobTimeoutPiece           time.Duration
	JobTimeoutFeedbackTrigger time.Duration

	FeedbackAlpha           float64
	FeedbackMinCompanies    int
	SchedulerEnabled        bool
	SchedulerSpec           string
	SchedulerMinNewCampaign int

	SafetyThresholdDefault float64
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken: getEnv("API_AUTH_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AdapterAPIKey:     getEnv("ADAPTER_API_KEY", ""),
		AdapterBaseURL:    getEnv("ADAPTER_BASE_URL", "https://api.openai.com/v1"),
		AdapterTimeoutMS:  getEnvInt("ADAPTER_TIMEOUT_MS", 30000),
		AdapterMaxRetries: getEnvInt("ADAPTER_MAX_RETRIES", 2),
		AdapterModel:      getEnv("ADAPTER_MODEL", "gpt-4.1-mini"),

		GenCacheTTLSeconds: getEnvInt("GEN_CACHE_TTL_SECONDS", 900),
		GenCacheMaxEntries: getEnvInt("GEN_CACHE_MAX_ENTRIES", 2000),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "signal_jobs"),
		RedisDLQ:      getEnv("REDIS_DLQ_STREAM", "signal_jobs_dlq"),
		RedisGroup:    getEnv("REDIS_GROUP", "signal_workers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "api-1"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		WorkerEnabled: getEnvBool("WORKER_ENABLED", true),
		WorkerCount:   getEnvInt("WORKER_COUNT", 4),

		JobTimeoutSignalRefresh:   getEnvDuration("JOB_TIMEOUT_SIGNAL_REFRESH_S", 60),
		JobTimeoutCampaign:        getEnvDuration("JOB_TIMEOUT_CAMPAIGN_S", 120),
		JobTimeoutStrategy:        getEnvDuration("JOB_TIMEOUT_STRATEGY_S", 90),
		JobTimeoutPiece:           getEnvDuration("JOB_TIMEOUT_PIECE_S", 180),
		JobTimeoutFeedbackTrigger: getEnvDuration("JOB_TIMEOUT_FEEDBACK_S", 60),

		FeedbackAlpha:           getEnvFloat("FEEDBACK_ALPHA", 0.3),
		FeedbackMinCompanies:    getEnvInt("FEEDBACK_MIN_COMPANIES", 3),
		SchedulerEnabled:        getEnvBool("SCHEDULER_ENABLED", true),
		SchedulerSpec:           getEnv("SCHEDULER_SPEC", "@every 1h"),
		SchedulerMinNewCampaign: getEnvInt("SCHEDULER_MIN_NEW_CAMPAIGNS", 5),

		SafetyThresholdDefault: getEnvFloat("SAFETY_THRESHOLD_DEFAULT", 0.7),
	}
}

// JobTimeout maps a job type string to its wall-clock budget.
func (c Config) JobTimeout(jobType string) time.Duration {
	switch jobType {
	case "signal_refresh":
		return c.JobTimeoutSignalRefresh
	case "campaign_generate":
		return c.JobTimeoutCampaign
	case "content_strategy_generate":
		return c.JobTimeoutStrategy
	case "content_piece_generate":
		return c.JobTimeoutPiece
	case "feedback_trigger":
		return c.JobTimeoutFeedbackTrigger
	default:
		return 60 * time.Second
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackSeconds)) * time.Second
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
