package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration (환경변수)
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
// 전략 임계값(EMA span, 채널 길이 등)은 internal/stageconfig YAML에서 관리
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Stage pipeline
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool

	// API
	APIRateLimit float64 // requests per second, 0 = unlimited
	APIRateBurst int
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

// PipelineConfig holds stage pipeline runtime settings
type PipelineConfig struct {
	StageConfigPath string // stage threshold YAML
	Workers         int    // 종목별 병렬 분류 워커 수
	HistoryDays     int    // 분류에 사용할 과거 달력일 수, 0 = 시리즈 전체 (기본)
	Schedule        string // cron expression for the daily job

	// API 프로세스의 게이트 재적재 주기 (stage_runs 변경 확인)
	GateRefreshSchedule string
	GateLookbackDays    int // 게이트 적재 기간 (달력일), 0 = 전체
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Pipeline: PipelineConfig{
			StageConfigPath: getEnv("STAGE_CONFIG_PATH", "config/stages.yaml"),
			Workers:         getEnvAsInt("PIPELINE_WORKERS", 8),
			HistoryDays:     getEnvAsInt("PIPELINE_HISTORY_DAYS", 0),
			Schedule:        getEnv("PIPELINE_SCHEDULE", "0 30 18 * * 1-5"),

			GateRefreshSchedule: getEnv("GATE_REFRESH_SCHEDULE", "0 * * * * *"),
			GateLookbackDays:    getEnvAsInt("GATE_LOOKBACK_DAYS", 400),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),

		APIRateLimit: getEnvAsFloat("API_RATE_LIMIT", 50),
		APIRateBurst: getEnvAsInt("API_RATE_BURST", 100),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("PIPELINE_WORKERS must be > 0")
	}

	if c.Pipeline.HistoryDays < 0 {
		return fmt.Errorf("PIPELINE_HISTORY_DAYS must be >= 0")
	}

	if c.Pipeline.GateLookbackDays < 0 {
		return fmt.Errorf("GATE_LOOKBACK_DAYS must be >= 0")
	}

	if c.APIRateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT must be >= 0")
	}

	return nil
}

// RequireDatabase reports an error when no database URL is configured.
// DB 없이도 CLI의 설정 검사 등은 동작해야 하므로 Load()에서는 강제하지 않음
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
