package config

import (
	"time"

	"github.com/phrazzld/scry-batch/internal/batch"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine"   validate:"required"`
	Import   ImportConfig   `mapstructure:"import"`
}

// ServerConfig contains the ops HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// EngineConfig mirrors the batch engine's configuration surface. Durations
// are expressed in milliseconds for flat env-variable friendliness.
type EngineConfig struct {
	BatchSize               int  `mapstructure:"batch_size"                validate:"required,gte=1"`
	MaxConcurrency          int  `mapstructure:"max_concurrency"           validate:"required,gte=1"`
	RetryAttempts           int  `mapstructure:"retry_attempts"            validate:"required,gte=1"`
	RetryDelayMs            int  `mapstructure:"retry_delay_ms"            validate:"gte=0"`
	TimeoutMs               int  `mapstructure:"timeout_ms"                validate:"gte=0"`
	EnableCircuitBreaker    bool `mapstructure:"enable_circuit_breaker"`
	CircuitBreakerThreshold int  `mapstructure:"circuit_breaker_threshold" validate:"gte=0"`
	CircuitBreakerResetMs   int  `mapstructure:"circuit_breaker_reset_ms"  validate:"gte=0"`
}

// ImportConfig contains settings for the review import pipeline.
type ImportConfig struct {
	PreserveOrder bool `mapstructure:"preserve_order"`
	DeadlockRetry bool `mapstructure:"deadlock_retry"`
}

// BatchConfig converts the engine settings into the batch package's
// configuration type.
func (c EngineConfig) BatchConfig() batch.Config {
	return batch.Config{
		BatchSize:               c.BatchSize,
		MaxConcurrency:          c.MaxConcurrency,
		RetryAttempts:           c.RetryAttempts,
		RetryDelay:              time.Duration(c.RetryDelayMs) * time.Millisecond,
		Timeout:                 time.Duration(c.TimeoutMs) * time.Millisecond,
		EnableCircuitBreaker:    c.EnableCircuitBreaker,
		CircuitBreakerThreshold: c.CircuitBreakerThreshold,
		CircuitBreakerResetTime: time.Duration(c.CircuitBreakerResetMs) * time.Millisecond,
	}
}
