// Package config loads service settings from the environment and an
// optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/mmynk/splitpass/internal/calculator"
)

// Lock backends.
const (
	LockSQLite = "sqlite"
	LockRedis  = "redis"
	LockNATS   = "nats"
)

// MinJWTSecretLength is the shortest HMAC key accepted for signing tokens.
const MinJWTSecretLength = 32

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	DBPath   string `mapstructure:"DB_PATH"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Batch scheduler.
	SchedulerEnabled   bool   `mapstructure:"SCHEDULER_ENABLED"`
	SchedulerSchedule  string `mapstructure:"SCHEDULER_SCHEDULE"`
	WindowMinutes      int    `mapstructure:"WINDOW_MINUTES"`
	LockTimeoutSeconds int    `mapstructure:"LOCK_TIMEOUT_SECONDS"`
	LockBackend        string `mapstructure:"LOCK_BACKEND"`
	JobName            string `mapstructure:"JOB_NAME"`

	// Grouping.
	GroupMinSize   int   `mapstructure:"GROUP_MIN_SIZE"`
	GroupMaxSize   int   `mapstructure:"GROUP_MAX_SIZE"`
	PassPriceCents int64 `mapstructure:"PASS_PRICE_CENTS"`

	// Redis lock backend.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// NATS lock backend.
	NATSURL        string `mapstructure:"NATS_URL"`
	NATSLockBucket string `mapstructure:"NATS_LOCK_BUCKET"`

	// Auth.
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	TokenTTL          time.Duration `mapstructure:"TOKEN_TTL"`
	AdminUsername     string        `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash string        `mapstructure:"ADMIN_PASSWORD_HASH"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_PATH", "./data/splitpass.db")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_SCHEDULE", "@every 1m")
	v.SetDefault("WINDOW_MINUTES", 15)
	v.SetDefault("LOCK_TIMEOUT_SECONDS", 300)
	v.SetDefault("LOCK_BACKEND", LockSQLite)
	v.SetDefault("JOB_NAME", "group-formation")

	v.SetDefault("GROUP_MIN_SIZE", calculator.DefaultLimits.Min)
	v.SetDefault("GROUP_MAX_SIZE", calculator.DefaultLimits.Max)
	v.SetDefault("PASS_PRICE_CENTS", 0)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_LOCK_BUCKET", "splitpass-locks")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
}

// Load reads config.yaml from the working directory or ./config if one
// exists, then applies environment variables on top.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.LockBackend = strings.ToLower(cfg.LockBackend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Limits().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.WindowMinutes <= 0 {
		errs = append(errs, fmt.Errorf("WINDOW_MINUTES must be positive, got %d", c.WindowMinutes))
	}
	if c.LockTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("LOCK_TIMEOUT_SECONDS must be positive, got %d", c.LockTimeoutSeconds))
	}
	if _, err := cron.ParseStandard(c.SchedulerSchedule); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULER_SCHEDULE %q: %w", c.SchedulerSchedule, err))
	}
	if c.JobName == "" {
		errs = append(errs, errors.New("JOB_NAME must not be empty"))
	}
	if c.PassPriceCents < 0 {
		errs = append(errs, fmt.Errorf("PASS_PRICE_CENTS must not be negative, got %d", c.PassPriceCents))
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", MinJWTSecretLength, len(c.JWTSecret)))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}

	switch c.LockBackend {
	case LockSQLite:
	case LockRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis lock backend"))
		}
	case LockNATS:
		if c.NATSURL == "" || c.NATSLockBucket == "" {
			errs = append(errs, errors.New("NATS_URL and NATS_LOCK_BUCKET are required for the nats lock backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend))
	}

	return errors.Join(errs...)
}

// Limits returns the configured group size bounds.
func (c *Config) Limits() calculator.Limits {
	return calculator.Limits{Min: c.GroupMinSize, Max: c.GroupMaxSize}
}

// Window returns how far ahead of now a batch tick looks for departures.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// LockTimeout returns the lease on the batch lock.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}
