package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 30, cfg.Extractor.MaxRecords)
	assert.Equal(t, "http", cfg.Fetcher.Type)
	assert.Zero(t, cfg.Fetcher.RateLimit)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storetrends.yaml")
	yaml := `
server:
  port: 9000
fetcher:
  request_timeout: 5s
  rate_limit: 0.5
extractor:
  max_records: 10
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("STORETRENDS_LOGGING_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Fetcher.RequestTimeout)
	assert.Equal(t, 0.5, cfg.Fetcher.RateLimit)
	assert.Equal(t, 10, cfg.Extractor.MaxRecords)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultConfig().Fetcher.SearchURL, cfg.Fetcher.SearchURL)
	require.NoError(t, Validate(cfg))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad fetcher type", func(c *Config) { c.Fetcher.Type = "curl" }},
		{"bad search url", func(c *Config) { c.Fetcher.SearchURL = "ftp://store.example" }},
		{"zero timeout", func(c *Config) { c.Fetcher.RequestTimeout = 0 }},
		{"negative rate", func(c *Config) { c.Fetcher.RateLimit = -1 }},
		{"record cap too high", func(c *Config) { c.Extractor.MaxRecords = 31 }},
		{"record cap zero", func(c *Config) { c.Extractor.MaxRecords = 0 }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "parquet" }},
		{"mongo without uri", func(c *Config) { c.Storage.Type = "mongodb" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad metrics path", func(c *Config) { c.Metrics.Path = "metrics" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
