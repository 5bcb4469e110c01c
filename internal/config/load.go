package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables (prefix SCRY_BATCH, dots replaced by
// underscores, e.g. SCRY_BATCH_ENGINE_BATCH_SIZE) take precedence over
// values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("SCRY_BATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars and defaults still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Registered with an empty default so AutomaticEnv can see the key;
	// validation still requires a value.
	v.SetDefault("database.url", "")

	v.SetDefault("engine.batch_size", 100)
	v.SetDefault("engine.max_concurrency", 4)
	v.SetDefault("engine.retry_attempts", 3)
	v.SetDefault("engine.retry_delay_ms", 100)
	v.SetDefault("engine.timeout_ms", 30000)
	v.SetDefault("engine.enable_circuit_breaker", true)
	v.SetDefault("engine.circuit_breaker_threshold", 5)
	v.SetDefault("engine.circuit_breaker_reset_ms", 60000)

	v.SetDefault("import.preserve_order", true)
	v.SetDefault("import.deadlock_retry", true)
}
