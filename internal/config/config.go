package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Qdrant      QdrantConfig
	Embedding   EmbeddingConfig
	OpenAI      OpenAIConfig
	Gemini      GeminiConfig
	Budget      BudgetConfig
	RateLimit   RateLimitConfig
	Breaker     BreakerConfig
	Cache       CacheConfig
	Scheduler   SchedulerConfig
	Recommender RecommenderConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type EmbeddingConfig struct {
	ServiceURL string
	Timeout    time.Duration
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type GeminiConfig struct {
	APIKey string
}

type BudgetConfig struct {
	MonthlyLimit     float64
	WarningThreshold float64
}

type RateLimitConfig struct {
	UserPerMinute   int
	GlobalPerMinute int
}

type BreakerConfig struct {
	FailureThreshold uint32
	RecoveryTimeout  time.Duration
	MonitoringPeriod time.Duration
	HalfOpenMaxCalls uint32
}

type CacheConfig struct {
	AITTL       time.Duration
	FallbackTTL time.Duration
}

type SchedulerConfig struct {
	StaleRefreshInterval time.Duration
	WarmupCron           string
	CleanupCron          string
	StalenessThreshold   time.Duration
	ActiveWindowDays     int
	BatchSize            int
	BatchConcurrency     int
	BatchDelay           time.Duration
}

type RecommenderConfig struct {
	AIEnabled          bool
	DefaultLimit       int
	MinSimilarityScore float64
	RetryMaxAttempts   int
	RetryDelay         time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "projecthub"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6334"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "projects"),
		},
		Embedding: EmbeddingConfig{
			ServiceURL: getEnv("EMBEDDING_SERVICE_URL", "http://localhost:8001"),
			Timeout:    getEnvAsDuration("EMBEDDING_TIMEOUT", "10s"),
		},
		OpenAI: OpenAIConfig{
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Timeout: getEnvAsDuration("OPENAI_TIMEOUT", "30s"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
		},
		Budget: BudgetConfig{
			MonthlyLimit:     getEnvAsFloat("BUDGET_MONTHLY_LIMIT", 100.0),
			WarningThreshold: getEnvAsFloat("BUDGET_WARNING_THRESHOLD", 0.8),
		},
		RateLimit: RateLimitConfig{
			UserPerMinute:   getEnvAsInt("RATE_LIMIT_USER_PER_MINUTE", 10),
			GlobalPerMinute: getEnvAsInt("RATE_LIMIT_GLOBAL_PER_MINUTE", 120),
		},
		Breaker: BreakerConfig{
			FailureThreshold: uint32(getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5)),
			RecoveryTimeout:  getEnvAsDuration("BREAKER_RECOVERY_TIMEOUT", "60s"),
			MonitoringPeriod: getEnvAsDuration("BREAKER_MONITORING_PERIOD", "120s"),
			HalfOpenMaxCalls: uint32(getEnvAsInt("BREAKER_HALF_OPEN_MAX_CALLS", 1)),
		},
		Cache: CacheConfig{
			AITTL:       getEnvAsDuration("CACHE_AI_TTL", "24h"),
			FallbackTTL: getEnvAsDuration("CACHE_FALLBACK_TTL", "4h"),
		},
		Scheduler: SchedulerConfig{
			StaleRefreshInterval: getEnvAsDuration("SCHEDULER_STALE_INTERVAL", "2h"),
			WarmupCron:           getEnv("SCHEDULER_WARMUP_CRON", "0 6 * * *"),
			CleanupCron:          getEnv("SCHEDULER_CLEANUP_CRON", "0 3 * * *"),
			StalenessThreshold:   getEnvAsDuration("SCHEDULER_STALENESS_THRESHOLD", "2h"),
			ActiveWindowDays:     getEnvAsInt("SCHEDULER_ACTIVE_WINDOW_DAYS", 7),
			BatchSize:            getEnvAsInt("SCHEDULER_BATCH_SIZE", 10),
			BatchConcurrency:     getEnvAsInt("SCHEDULER_BATCH_CONCURRENCY", 3),
			BatchDelay:           getEnvAsDuration("SCHEDULER_BATCH_DELAY", "1s"),
		},
		Recommender: RecommenderConfig{
			AIEnabled:          getEnvAsBool("RECOMMENDER_AI_ENABLED", true),
			DefaultLimit:       getEnvAsInt("RECOMMENDER_DEFAULT_LIMIT", 10),
			MinSimilarityScore: getEnvAsFloat("RECOMMENDER_MIN_SIMILARITY", 0.3),
			RetryMaxAttempts:   getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryDelay:         getEnvAsDuration("RETRY_DELAY", "2s"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
