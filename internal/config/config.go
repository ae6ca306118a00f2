package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	SourceDB   = "db"
	SourceMock = "mock"
)

type Config struct {
	App struct {
		Port        string
		Debug       bool
		FrontendURL string
		LogLevel    string
	}
	Source struct {
		Kind        string
		SeedOnStart bool
		AutoMigrate bool
	}
	DB struct {
		Driver   string
		Host     string
		Port     string
		User     string
		Password string
		DBName   string
		SSLMode  string
	}
	Redis struct {
		Enabled  bool
		Host     string
		Port     string
		Password string
		DB       int
	}
	Cache struct {
		SnapshotTTL time.Duration
	}
	Mock struct {
		Seed          int64
		Users         int
		Institutions  int
		Categories    int
		Items         int
		Donations     int
		DonationItems int
		Impacts       int
	}
	Pipeline struct {
		CompletedStatuses []string
		KnownStatuses     []string
	}
	Workers struct {
		SnapshotEnabled  bool
		SnapshotInterval time.Duration
	}
	RateLimit struct {
		RequestsPerSecond int
		Burst             int
	}
	Export struct {
		OutputDir string
		Retention time.Duration
	}
	Classifier struct {
		URL     string
		APIKey  string
		Timeout time.Duration
	}
}

func Load() *Config {
	cfg := &Config{}

	// App
	cfg.App.Port = getEnv("PORT", "8080")
	cfg.App.Debug = getEnvAsBool("DEBUG", false)
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")
	cfg.App.LogLevel = getEnv("LOG_LEVEL", "")

	// Data source
	cfg.Source.Kind = strings.ToLower(getEnv("DATA_SOURCE", SourceMock))
	cfg.Source.SeedOnStart = getEnvAsBool("DB_SEED_ON_START", false)
	cfg.Source.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", true)

	// DB
	cfg.DB.Driver = strings.ToLower(getEnv("DB_DRIVER", "postgres"))
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", defaultDBPort(cfg.DB.Driver))
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.DBName = getEnv("DB_NAME", "helplink")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	// Redis
	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", true)
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnv("REDIS_PORT", "6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	cfg.Cache.SnapshotTTL = getEnvAsDuration("CACHE_SNAPSHOT_TTL", 5*time.Minute)

	// Mock data
	cfg.Mock.Seed = int64(getEnvAsInt("MOCK_SEED", 1))
	cfg.Mock.Users = getEnvAsInt("MOCK_USERS", 18)
	cfg.Mock.Institutions = getEnvAsInt("MOCK_INSTITUTIONS", 15)
	cfg.Mock.Categories = getEnvAsInt("MOCK_CATEGORIES", 5)
	cfg.Mock.Items = getEnvAsInt("MOCK_ITEMS", 14)
	cfg.Mock.Donations = getEnvAsInt("MOCK_DONATIONS", 15)
	cfg.Mock.DonationItems = getEnvAsInt("MOCK_DONATION_ITEMS", 15)
	cfg.Mock.Impacts = getEnvAsInt("MOCK_IMPACTS", 15)

	// Pipeline
	cfg.Pipeline.CompletedStatuses = getEnvAsList("PIPELINE_COMPLETED_STATUSES", []string{"CONCLUIDA", "COMPLETED", "CONFIRMED"})
	cfg.Pipeline.KnownStatuses = getEnvAsList("PIPELINE_KNOWN_STATUSES", nil)

	// Workers
	cfg.Workers.SnapshotEnabled = getEnvAsBool("SNAPSHOT_WORKER_ENABLED", true)
	cfg.Workers.SnapshotInterval = getEnvAsDuration("WORKER_SNAPSHOT_INTERVAL", 60*time.Second)

	// Rate Limit
	cfg.RateLimit.RequestsPerSecond = getEnvAsInt("RATE_LIMIT_RPS", 10)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 20)

	cfg.Export.OutputDir = getEnv("EXPORT_OUTPUT_DIR", "./data/exports")
	cfg.Export.Retention = getEnvAsDuration("EXPORT_RETENTION", 24*time.Hour)

	// Classifier
	cfg.Classifier.URL = getEnv("CLASSIFIER_URL", "")
	cfg.Classifier.APIKey = getEnv("CLASSIFIER_API_KEY", "")
	cfg.Classifier.Timeout = getEnvAsDuration("CLASSIFIER_TIMEOUT", 20*time.Second)

	return cfg
}

func defaultDBPort(driver string) string {
	if driver == "mysql" {
		return "3306"
	}
	return "5432"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if dur, err := time.ParseDuration(value); err == nil {
			return dur
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
