package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/patients.csv", cfg.Data.PatientsFile)
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, "summaries.db", cfg.Ledger.DSN)
	assert.Equal(t, "huggingface", cfg.Generation.Backend)
	assert.Equal(t, "gpt2", cfg.Generation.Model)
	assert.Equal(t, 100, cfg.Generation.BriefLength)
	assert.Equal(t, 200, cfg.Generation.DetailedLength)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Drafts.TTL)
	assert.Equal(t, "fs", cfg.Export.Backend)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, ":8080", cfg.ServerAddress())
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
ledger:
  driver: postgres
  dsn: postgres://localhost/discharge?sslmode=disable
generation:
  backend: echo
  timeout: 5s
  brief_length: 60
  detailed_length: 240
export:
  backend: s3
  bucket: summaries
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Ledger.Driver)
	assert.Equal(t, "echo", cfg.Generation.Backend)
	assert.Equal(t, 5*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 60, cfg.LengthHints().Brief)
	assert.Equal(t, 240, cfg.LengthHints().Detailed)
	assert.Equal(t, "summaries", cfg.Export.Bucket)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("DISCHARGE_SERVER_PORT", "9100")
	t.Setenv("DISCHARGE_GENERATION_BACKEND", "echo")
	t.Setenv("DISCHARGE_EVENTS_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "echo", cfg.Generation.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Events.RedisURL)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvertedLengthHints(t *testing.T) {
	path := writeConfig(t, "generation:\n  brief_length: 300\n  detailed_length: 200\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brief length")
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no patients file", func(c *Config) { c.Data.PatientsFile = "" }},
		{"unknown driver", func(c *Config) { c.Ledger.Driver = "mysql" }},
		{"unknown backend", func(c *Config) { c.Generation.Backend = "markov" }},
		{"gemini without key", func(c *Config) { c.Generation.Backend = "gemini" }},
		{"zero timeout", func(c *Config) { c.Generation.Timeout = 0 }},
		{"s3 without bucket", func(c *Config) { c.Export.Backend = "s3" }},
		{"unknown export backend", func(c *Config) { c.Export.Backend = "ftp" }},
		{"zero rate", func(c *Config) { c.RateLimit.RPS = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *cfg
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	assert.NoError(t, cfg.Validate())
}
