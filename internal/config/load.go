package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is shared by every environment variable the loader reads, e.g.
// TRELLIS_DATABASE_URL maps onto database.url.
const envPrefix = "TRELLIS"

// Load configuration from environment variables and optionally a config.yaml
// file in the working directory. Environment variables take precedence over
// values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return load("")
}

// LoadFromFile loads configuration from an explicit config file path, with
// environment variables still taking precedence.
func LoadFromFile(configPath string) (*Config, error) {
	return load(configPath)
}

func load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10)
	v.SetDefault("redis.channel", "trellis:board-events")
	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.queue_size", 256)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything can come from the
		// environment. Malformed files are not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Configure environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables that have no default, so viper
	// picks them up even when the key is absent from any config file.
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"database.url", envPrefix + "_DATABASE_URL"},
		{"auth.jwt_secret", envPrefix + "_AUTH_JWT_SECRET"},
		{"server.port", envPrefix + "_SERVER_PORT"},
		{"server.log_level", envPrefix + "_SERVER_LOG_LEVEL"},
		{"server.shutdown_timeout", envPrefix + "_SERVER_SHUTDOWN_TIMEOUT"},
		{"redis.addr", envPrefix + "_REDIS_ADDR"},
		{"redis.channel", envPrefix + "_REDIS_CHANNEL"},
		{"worker.count", envPrefix + "_WORKER_COUNT"},
		{"worker.queue_size", envPrefix + "_WORKER_QUEUE_SIZE"},
	}
	for _, binding := range bindEnvs {
		if err := v.BindEnv(binding.key, binding.envVar); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", binding.envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
