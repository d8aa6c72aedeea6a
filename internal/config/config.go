// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AUTOVED_SERVER_PORT.
const EnvPrefix = "AUTOVED"

// Storage backends.
const (
	StorageLocal  = "local"
	StorageGCS    = "gcs"
	StorageMemory = "memory"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// LeadsRPS and LeadsBurst throttle contact-form submissions per client address.
	LeadsRPS   float64 `mapstructure:"leads_rps"`
	LeadsBurst int     `mapstructure:"leads_burst"`
}

// TelegramConfig holds Bot API credentials and the webhook secret.
type TelegramConfig struct {
	BotToken        string        `mapstructure:"bot_token"`
	WebhookSecret   string        `mapstructure:"webhook_secret"`
	ChatID          string        `mapstructure:"chat_id"`
	APIBaseURL      string        `mapstructure:"api_base_url"`
	UserAgent       string        `mapstructure:"user_agent"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	// RecheckSecret repeats the secret comparison inside the pipeline.
	RecheckSecret bool `mapstructure:"recheck_secret"`
}

// StorageConfig selects where re-hosted photos are written.
type StorageConfig struct {
	Backend         string             `mapstructure:"backend"`
	GCSBucket       string             `mapstructure:"gcs_bucket"`
	PublicBaseURL   string             `mapstructure:"public_base_url"`
	CacheControl    string             `mapstructure:"cache_control"`
	Prefix          string             `mapstructure:"prefix"`
	ContentType     string             `mapstructure:"content_type"`
	DefaultImageURL string             `mapstructure:"default_image_url"`
	Local           LocalStorageConfig `mapstructure:"local"`
}

// LocalStorageConfig configures the filesystem backend.
type LocalStorageConfig struct {
	BaseDir       string `mapstructure:"base_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// DatabaseConfig controls the catalog store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig enables the duplicate-message guard when URL is set.
type RedisConfig struct {
	URL       string        `mapstructure:"url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// PubSubConfig holds metadata for catalog event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`

	// MemoryBuffer is how many recent events the in-process publisher keeps when no project
	// is configured.
	MemoryBuffer int `mapstructure:"memory_buffer"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TracingConfig controls the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// legacyEnv maps config keys to the unprefixed variable names older deployments use.
var legacyEnv = map[string]string{
	"telegram.bot_token":      "TELEGRAM_BOT_TOKEN",
	"telegram.webhook_secret": "TELEGRAM_WEBHOOK_SECRET",
	"telegram.chat_id":        "TELEGRAM_CHAT_ID",
	"database.dsn":            "DATABASE_URL",
}

// Load builds a Config from an optional file, a .env file in the working directory and the
// environment. Variables already set in the process win over .env entries.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envName := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 45*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.leads_rps", 0.2)
	v.SetDefault("server.leads_burst", 3)
	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.user_agent", "autoved-bot/1.0")
	v.SetDefault("telegram.download_timeout", 30*time.Second)
	v.SetDefault("telegram.recheck_secret", true)
	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.cache_control", "public, max-age=31536000")
	v.SetDefault("storage.prefix", "cars")
	v.SetDefault("storage.content_type", "image/jpeg")
	v.SetDefault("storage.default_image_url", "/images/car-placeholder.jpg")
	v.SetDefault("storage.local.base_dir", "uploads")
	v.SetDefault("storage.local.public_base_url", "/uploads")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "autoved.db")
	v.SetDefault("database.table", "cars")
	v.SetDefault("database.max_conns", 0)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", 0)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.key_prefix", "autoved:")
	v.SetDefault("redis.ttl", 72*time.Hour)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "catalog-events")
	v.SetDefault("pubsub.memory_buffer", 256)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "autoved")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.Local.BaseDir == "" {
			return fmt.Errorf("storage.local.base_dir is required for the local backend")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs backend")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("storage.backend must be one of local, gcs, memory (got %q)", c.Storage.Backend)
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite (got %q)", c.Database.Driver)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	return nil
}
