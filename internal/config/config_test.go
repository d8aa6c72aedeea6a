package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "https://api.telegram.org", cfg.Telegram.APIBaseURL)
	require.True(t, cfg.Telegram.RecheckSecret)
	require.Equal(t, StorageLocal, cfg.Storage.Backend)
	require.Equal(t, "uploads", cfg.Storage.Local.BaseDir)
	require.Equal(t, "image/jpeg", cfg.Storage.ContentType)
	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.True(t, cfg.Database.AutoMigrate)
	require.Equal(t, 72*time.Hour, cfg.Redis.TTL)
	require.Empty(t, cfg.Redis.URL)
	require.Equal(t, "catalog-events", cfg.PubSub.TopicName)
	require.Equal(t, 256, cfg.PubSub.MemoryBuffer)
	require.True(t, cfg.Logging.Development)
	require.False(t, cfg.Tracing.Enabled)
}

func TestLoadWithFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout: 5s
telegram:
  bot_token: "123:abc"
  webhook_secret: hook
  chat_id: "-100500"
storage:
  backend: gcs
  gcs_bucket: autoved-photos
  prefix: listings
database:
  driver: postgres
  dsn: postgres://autoved@localhost/autoved
  max_conns: 8
  auto_migrate: false
redis:
  url: redis://localhost:6379/0
  ttl: 1h
logging:
  development: false
tracing:
  enabled: true
  sample_ratio: 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	require.Equal(t, "123:abc", cfg.Telegram.BotToken)
	require.Equal(t, "hook", cfg.Telegram.WebhookSecret)
	require.Equal(t, "-100500", cfg.Telegram.ChatID)
	require.Equal(t, StorageGCS, cfg.Storage.Backend)
	require.Equal(t, "autoved-photos", cfg.Storage.GCSBucket)
	require.Equal(t, "listings", cfg.Storage.Prefix)
	require.Equal(t, DriverPostgres, cfg.Database.Driver)
	require.EqualValues(t, 8, cfg.Database.MaxConns)
	require.False(t, cfg.Database.AutoMigrate)
	require.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	require.Equal(t, time.Hour, cfg.Redis.TTL)
	require.False(t, cfg.Logging.Development)
	require.True(t, cfg.Tracing.Enabled)
	require.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-9)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUTOVED_SERVER_PORT", "7070")
	t.Setenv("AUTOVED_STORAGE_BACKEND", "memory")
	t.Setenv("AUTOVED_TELEGRAM_WEBHOOK_SECRET", "prefixed")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, StorageMemory, cfg.Storage.Backend)
	require.Equal(t, "prefixed", cfg.Telegram.WebhookSecret)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "legacy-token")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "legacy-secret")
	t.Setenv("TELEGRAM_CHAT_ID", "-100777")
	t.Setenv("DATABASE_URL", "postgres://legacy@db/autoved")
	t.Setenv("AUTOVED_DATABASE_DRIVER", "postgres")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "legacy-token", cfg.Telegram.BotToken)
	require.Equal(t, "legacy-secret", cfg.Telegram.WebhookSecret)
	require.Equal(t, "-100777", cfg.Telegram.ChatID)
	require.Equal(t, "postgres://legacy@db/autoved", cfg.Database.DSN)
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "legacy")
	t.Setenv("AUTOVED_TELEGRAM_BOT_TOKEN", "current")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "current", cfg.Telegram.BotToken)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Storage:  StorageConfig{Backend: StorageLocal, Local: LocalStorageConfig{BaseDir: "uploads"}},
			Database: DatabaseConfig{Driver: DriverSQLite, DSN: "autoved.db"},
			Tracing:  TracingConfig{SampleRatio: 1},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"gcs without bucket", func(c *Config) { c.Storage.Backend = StorageGCS }},
		{"local without dir", func(c *Config) { c.Storage.Local.BaseDir = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 1.5 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
