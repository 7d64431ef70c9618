package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dddkit", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Database.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Database.Retry.InitialDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowThreshold)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)
	assert.Equal(t, "log", cfg.Outbox.Publisher)
	assert.Equal(t, "domain-events", cfg.Outbox.Redis.Stream)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Contains(t, cfg.CORS.AllowHeaders, "X-Request-ID")
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  env: production
database:
  driver: postgres
  host: db.internal
  port: "5432"
outbox:
  enabled: true
  batch_size: 20
  publisher: redis
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DDDKIT_DATABASE_PASSWORD", "s3cret")
	t.Setenv("DDDKIT_OUTBOX_POLL_INTERVAL", "250ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, 20, cfg.Outbox.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "mysql", Retry: RetryConfig{Enabled: true, MaxAttempts: 3}},
			Outbox:   OutboxConfig{Enabled: true, BatchSize: 10, Publisher: "log"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, true},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite" }, true},
		{"sqlite with dsn", func(c *Config) { c.Database.Driver = "sqlite"; c.Database.DSN = "file::memory:" }, false},
		{"zero attempts", func(c *Config) { c.Database.Retry.MaxAttempts = 0 }, true},
		{"zero batch", func(c *Config) { c.Outbox.BatchSize = 0 }, true},
		{"redis without addr", func(c *Config) { c.Outbox.Publisher = "redis" }, true},
		{"unknown publisher", func(c *Config) { c.Outbox.Publisher = "kafka" }, true},
		{"server without port", func(c *Config) { c.Server.Enabled = true }, true},
		{"server with port", func(c *Config) { c.Server = ServerConfig{Enabled: true, Port: "9090"} }, false},
		{"outbox disabled ignores publisher", func(c *Config) { c.Outbox.Enabled = false; c.Outbox.Publisher = "kafka" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
