package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port               int      `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel           string   `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig selects and locates the card store.
// For sqlite the URL is a file path or a "file:" DSN.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required"`
}

// SchedulerConfig holds the forgetting-curve parameters.
type SchedulerConfig struct {
	RequestedRetention  float64   `mapstructure:"requested_retention" validate:"gt=0,lt=1"`
	MaximumIntervalDays int       `mapstructure:"maximum_interval_days" validate:"gte=1"`
	EnableFuzz          bool      `mapstructure:"enable_fuzz"`
	Weights             []float64 `mapstructure:"weights" validate:"omitempty,len=21"`
}

// ReminderConfig controls the periodic due-card reminder job. Reminders are
// always logged; Telegram and Slack delivery switch on when configured.
type ReminderConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	IntervalMinutes int    `mapstructure:"interval_minutes" validate:"gte=1"`
	TelegramToken   string `mapstructure:"telegram_token"`
	TelegramChatID  int64  `mapstructure:"telegram_chat_id" validate:"required_with=TelegramToken"`
	SlackWebhookURL string `mapstructure:"slack_webhook_url" validate:"omitempty,url"`
}
