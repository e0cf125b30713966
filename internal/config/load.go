package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the application reads,
// e.g. STUDY_DATABASE_URL for database.url.
const EnvPrefix = "STUDY"

// Load configuration from environment variables and an optional config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshalAndValidate(v)
}

// LoadFile loads configuration from the given file, with environment
// variables still taking precedence.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return unmarshalAndValidate(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "file:study.db?_foreign_keys=on")
	v.SetDefault("scheduler.requested_retention", 0.9)
	v.SetDefault("scheduler.maximum_interval_days", 36500)
	v.SetDefault("scheduler.enable_fuzz", true)
	v.SetDefault("scheduler.weights", []float64{})
	v.SetDefault("reminder.enabled", false)
	v.SetDefault("reminder.interval_minutes", 60)
	v.SetDefault("reminder.telegram_token", "")
	v.SetDefault("reminder.telegram_chat_id", 0)
	v.SetDefault("reminder.slack_webhook_url", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
