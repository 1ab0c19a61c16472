package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/segyhp/coop-ledger/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string `mapstructure:"SERVER_PORT"`
	Host         string `mapstructure:"SERVER_HOST"`
	Env          string `mapstructure:"ENV"`
	ReadTimeout  string `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout string `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"DATABASE_DRIVER"`
	URL             string `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	LateFineCron string `mapstructure:"SCHEDULER_LATE_FINE_CRON"`
	Timezone     string `mapstructure:"SCHEDULER_TIMEZONE"`
	LockTTL      string `mapstructure:"SCAN_LOCK_TTL"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	LateFeeRate          string `mapstructure:"LATE_FEE_RATE"`
	LateFeeCapDays       int    `mapstructure:"LATE_FEE_CAP_DAYS"`
	FineDueDays          int    `mapstructure:"FINE_DUE_DAYS"`
	MaxLoanTermMonths    int    `mapstructure:"MAX_LOAN_TERM_MONTHS"`
	DelinquencyThreshold int    `mapstructure:"DELINQUENCY_THRESHOLD"`
	SequenceBackend      string `mapstructure:"SEQUENCE_BACKEND"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":                "8080",
	"SERVER_HOST":                "0.0.0.0",
	"ENV":                        "development",
	"SERVER_READ_TIMEOUT":        "15s",
	"SERVER_WRITE_TIMEOUT":       "15s",
	"DATABASE_DRIVER":            "postgres",
	"DATABASE_URL":               "",
	"DATABASE_MAX_OPEN_CONNS":    25,
	"DATABASE_MAX_IDLE_CONNS":    5,
	"DATABASE_CONN_MAX_LIFETIME": "5m",
	"REDIS_HOST":                 "",
	"REDIS_PORT":                 "6379",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"SCHEDULER_LATE_FINE_CRON":   "0 0 1 * * *",
	"SCHEDULER_TIMEZONE":         "UTC",
	"SCAN_LOCK_TTL":              "10m",
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
	"LATE_FEE_RATE":              "0.02",
	"LATE_FEE_CAP_DAYS":          30,
	"FINE_DUE_DAYS":              30,
	"MAX_LOAN_TERM_MONTHS":       utils.MaxLoanTermMonths,
	"DELINQUENCY_THRESHOLD":      2,
	"SEQUENCE_BACKEND":           "database",
	"HEALTH_CHECK_TIMEOUT":       "5s",
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist; real environment wins
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite3, got %q", c.Database.Driver)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	rate, err := decimal.NewFromString(c.Business.LateFeeRate)
	if err != nil {
		return fmt.Errorf("LATE_FEE_RATE must be a valid decimal: %w", err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("LATE_FEE_RATE must not be negative")
	}

	if c.Business.LateFeeCapDays <= 0 {
		return fmt.Errorf("LATE_FEE_CAP_DAYS must be greater than 0")
	}

	if c.Business.FineDueDays <= 0 {
		return fmt.Errorf("FINE_DUE_DAYS must be greater than 0")
	}

	if c.Business.MaxLoanTermMonths <= 0 || c.Business.MaxLoanTermMonths > utils.MaxLoanTermMonths {
		return fmt.Errorf("MAX_LOAN_TERM_MONTHS must be between 1 and %d", utils.MaxLoanTermMonths)
	}

	if c.Business.DelinquencyThreshold <= 0 {
		return fmt.Errorf("DELINQUENCY_THRESHOLD must be greater than 0")
	}

	switch c.Business.SequenceBackend {
	case "database", "redis":
	default:
		return fmt.Errorf("SEQUENCE_BACKEND must be database or redis, got %q", c.Business.SequenceBackend)
	}

	if c.UsesRedisSequence() && !c.RedisEnabled() {
		return fmt.Errorf("SEQUENCE_BACKEND redis requires REDIS_HOST")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	durations := map[string]string{
		"SERVER_READ_TIMEOUT":        c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":       c.Server.WriteTimeout,
		"DATABASE_CONN_MAX_LIFETIME": c.Database.ConnMaxLifetime,
		"SCAN_LOCK_TTL":              c.Scheduler.LockTTL,
		"HEALTH_CHECK_TIMEOUT":       c.Health.Timeout,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// UsesRedisSequence reports whether display numbers come from redis
func (c *Config) UsesRedisSequence() bool {
	return strings.EqualFold(c.Business.SequenceBackend, "redis")
}

// GetFeePolicy returns the late fee policy
func (c *Config) GetFeePolicy() utils.FeePolicy {
	rate, _ := decimal.NewFromString(c.Business.LateFeeRate)
	return utils.FeePolicy{Rate: rate, CapDays: c.Business.LateFeeCapDays}
}

// GetSchedulerLocation returns the timezone cron expressions are evaluated in
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) GetReadTimeout() time.Duration {
	return mustDuration(c.Server.ReadTimeout)
}

func (c *Config) GetWriteTimeout() time.Duration {
	return mustDuration(c.Server.WriteTimeout)
}

func (c *Config) GetConnMaxLifetime() time.Duration {
	return mustDuration(c.Database.ConnMaxLifetime)
}

func (c *Config) GetScanLockTTL() time.Duration {
	return mustDuration(c.Scheduler.LockTTL)
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	return mustDuration(c.Health.Timeout)
}

// RedisEnabled reports whether a redis host is configured. Without one the
// scan runs unlocked and readiness does not check redis.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// RedisAddr returns host:port of the redis server
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
