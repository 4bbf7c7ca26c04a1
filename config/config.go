package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Training   TrainingConfig
	Matching   MatchingConfig
	ModelStore ModelStoreConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

// DatabaseConfig selects the product catalog source. With an empty DSN the
// catalog is read from CatalogFile and predictions are not persisted.
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	CatalogFile  string `mapstructure:"catalog_file"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// TrainingConfig holds model training configuration
type TrainingConfig struct {
	MinSamples      int           `mapstructure:"min_samples"`
	MinValidSamples int           `mapstructure:"min_valid_samples"`
	TestSize        float64       `mapstructure:"test_size"`
	CVFolds         int           `mapstructure:"cv_folds"`
	SelectK         int           `mapstructure:"select_k"`
	Seed            uint64        `mapstructure:"seed"`
	Estimators      int           `mapstructure:"estimators"`
	Parallelism     int           `mapstructure:"parallelism"`
	Schedule        string        `mapstructure:"schedule"` // empty disables scheduled retraining
	Timeout         time.Duration `mapstructure:"timeout"`
	TrainOnStartup  bool          `mapstructure:"train_on_startup"`
}

// MatchingConfig holds search configuration
type MatchingConfig struct {
	DefaultTopK int `mapstructure:"default_top_k"`
	MaxTopK     int `mapstructure:"max_top_k"`
}

// ModelStoreConfig holds model snapshot persistence configuration
type ModelStoreConfig struct {
	Path   string `mapstructure:"path"` // empty disables persistence
	Retain int    `mapstructure:"retain"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/specmatch/")

	// Environment variable settings: SPECMATCH_TRAINING_MIN_SAMPLES -> training.min_samples
	v.SetEnvPrefix("SPECMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile exports the variables of ./.env that are not already set.
// A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_grace", "15s")

	// Database defaults
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.catalog_file", "data/catalog.yaml")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "5m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Training defaults
	v.SetDefault("training.min_samples", 25000)
	v.SetDefault("training.min_valid_samples", 1000)
	v.SetDefault("training.test_size", 0.2)
	v.SetDefault("training.cv_folds", 5)
	v.SetDefault("training.select_k", 10)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.estimators", 100)
	v.SetDefault("training.parallelism", 0)
	v.SetDefault("training.schedule", "0 3 * * *")
	v.SetDefault("training.timeout", "30m")
	v.SetDefault("training.train_on_startup", true)

	// Matching defaults
	v.SetDefault("matching.default_top_k", 10)
	v.SetDefault("matching.max_top_k", 50)

	// Model store defaults
	v.SetDefault("modelstore.path", "specmatch-models.db")
	v.SetDefault("modelstore.retain", 5)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Database.DSN == "" && config.Database.CatalogFile == "" {
		return fmt.Errorf("either database.dsn or database.catalog_file is required")
	}

	if config.Log.Format != "json" && config.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("ratelimit.per_ip must be positive, got: %d", config.RateLimit.PerIP)
	}

	t := config.Training
	if t.MinSamples <= 0 || t.MinValidSamples <= 0 {
		return fmt.Errorf("training sample sizes must be positive, got min_samples=%d min_valid_samples=%d", t.MinSamples, t.MinValidSamples)
	}
	if t.TestSize <= 0 || t.TestSize >= 1 {
		return fmt.Errorf("training.test_size must be in (0, 1), got: %v", t.TestSize)
	}
	if t.CVFolds < 2 {
		return fmt.Errorf("training.cv_folds must be at least 2, got: %d", t.CVFolds)
	}
	if strings.TrimSpace(t.Schedule) != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(strings.TrimSpace(t.Schedule)); err != nil {
			return fmt.Errorf("training.schedule is invalid: %w", err)
		}
	}

	if config.Matching.DefaultTopK <= 0 || config.Matching.MaxTopK < config.Matching.DefaultTopK {
		return fmt.Errorf("matching top k must satisfy 0 < default_top_k <= max_top_k, got %d/%d",
			config.Matching.DefaultTopK, config.Matching.MaxTopK)
	}

	return nil
}
