package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Redis    RedisConfig
	Payroll  PayrollConfig
	Cron     CronConfig
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// RedisConfig is optional. An empty Addr keeps period locks in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PayrollConfig tunes the classification and computation batches.
type PayrollConfig struct {
	Workers          int
	DefaultTaxMethod string
	PunchDedupWindow time.Duration
	LockTTL          time.Duration
	WorkDaysPerYear  int
}

type CronConfig struct {
	Enabled                bool
	ClassificationInterval time.Duration
	LookbackDays           int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        dbPort,
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		Name:        getEnv("DB_NAME", "payroll_engine"),
		SSLMode:     getEnv("DB_SSL_MODE", "disable"),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Payroll configuration
	workers, err := strconv.Atoi(getEnv("PAYROLL_WORKERS", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_WORKERS: %w", err)
	}
	dedup, err := time.ParseDuration(getEnv("PUNCH_DEDUP_WINDOW", "2m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PUNCH_DEDUP_WINDOW: %w", err)
	}
	lockTTL, err := time.ParseDuration(getEnv("PAYROLL_LOCK_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_LOCK_TTL: %w", err)
	}
	workDays, err := strconv.Atoi(getEnv("WORK_DAYS_PER_YEAR", "261"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORK_DAYS_PER_YEAR: %w", err)
	}

	config.Payroll = PayrollConfig{
		Workers:          workers,
		DefaultTaxMethod: getEnv("DEFAULT_TAX_METHOD", "bracket"),
		PunchDedupWindow: dedup,
		LockTTL:          lockTTL,
		WorkDaysPerYear:  workDays,
	}

	// Cron configuration
	interval, err := time.ParseDuration(getEnv("CLASSIFICATION_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFICATION_INTERVAL: %w", err)
	}

	lookback, err := strconv.Atoi(getEnv("CLASSIFICATION_LOOKBACK_DAYS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFICATION_LOOKBACK_DAYS: %w", err)
	}

	config.Cron = CronConfig{
		Enabled:                getEnvBool("CRON_ENABLED", true),
		ClassificationInterval: interval,
		LookbackDays:           lookback,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Payroll.Workers <= 0 {
		return fmt.Errorf("PAYROLL_WORKERS must be positive")
	}
	if c.Payroll.WorkDaysPerYear <= 0 {
		return fmt.Errorf("WORK_DAYS_PER_YEAR must be positive")
	}
	if c.Payroll.DefaultTaxMethod != "bracket" && c.Payroll.DefaultTaxMethod != "cumulative_average" {
		return fmt.Errorf("DEFAULT_TAX_METHOD must be 'bracket' or 'cumulative_average'")
	}
	if c.Cron.ClassificationInterval <= 0 {
		return fmt.Errorf("CLASSIFICATION_INTERVAL must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// LogLevel maps App.LogLevel onto slog levels, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
