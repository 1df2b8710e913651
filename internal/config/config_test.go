package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

var envKeys = []string{
	"JOURNAL_ENV", "PORT", "JOURNAL_DB_DRIVER", "JOURNAL_DB_DSN", "DATABASE_URL", "JWT_SECRET",
	"ANTHROPIC_API_KEY", "GEMINI_API_KEY", "LLM_PROVIDER", "IMAGE_HOST_API_KEY", "ALLOWED_ORIGINS", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.yaml")
	writeFile(t, path, `
env: staging
server:
  port: 8080
  read_timeout: 5s
database:
  driver: sqlite
  dsn: /var/lib/journal.db
llm:
  provider: anthropic
  model: claude-test
  timeout: 10s
log:
  level: debug
`)
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("ALLOWED_ORIGINS", "chrome-extension://abc, https://example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "/var/lib/journal.db", cfg.Database.DSN)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey())
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"chrome-extension://abc", "https://example.com"}, cfg.Server.AllowedOrigins)
}

func TestDatabaseURLSelectsPostgres(t *testing.T) {
	cfg := Default()
	cfg.applyEnv(func(key string) string {
		if key == "DATABASE_URL" {
			return "postgres://journal@localhost/journal?sslmode=disable"
		}
		return ""
	})
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.yaml")
	writeFile(t, path, "server: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }},
		{"zero timeout", func(c *Config) { c.LLM.Timeout = 0 }},
		{"no attempts", func(c *Config) { c.LLM.Attempts = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"production without secret", func(c *Config) { c.Env = "production" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestWatchReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "journal.yaml")
	writeFile(t, path, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var level atomic.Value
	require.NoError(t, Watch(ctx, path, zap.NewNop(), func(c *Config) {
		level.Store(c.Log.Level)
	}))

	writeFile(t, path, "log:\n  level: debug\n")
	assert.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "debug"
	}, 5*time.Second, 20*time.Millisecond)
}
