package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"MULTICHAT_CONFIG", "PORT", "BODY_SIZE_LIMIT", "STATIC_DIR", "BACKEND_API_URL",
	"CHAT_ENDPOINT", "CACHE_TYPE", "CACHE_LOCAL_PATH", "REDIS_URL", "METRICS_ENDPOINT",
	"LOG_FORMAT", "LOG_LEVEL", "BACKEND_TIMEOUT", "BACKEND_MODELS_TIMEOUT", "CACHE_TTL",
	"METRICS_ENABLED", "CLIENT_REQUEST_ORDER",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "http://localhost:8000/chat/", cfg.Client.Endpoint)
	assert.Equal(t, "local", cfg.Cache.Type)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9090"
backend:
  url: "http://backend:8001/api"
  timeout: 90s
client:
  request_order: true
cache:
  type: redis
  redis_url: "redis://cache:6379/0"
  ttl: 1m
metrics:
  enabled: true
logging:
  format: json
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "1M", cfg.Server.BodySizeLimit, "unset keys keep defaults")
	assert.Equal(t, "http://backend:8001/api", cfg.Backend.URL)
	assert.Equal(t, 90*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Backend.ModelsTimeout)
	assert.True(t, cfg.Client.RequestOrder)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Endpoint)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MULTICHAT_CONFIG", writeConfig(t, "server:\n  port: \"7070\"\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  port: \"9090\"\n")
	t.Setenv("PORT", "3000")
	t.Setenv("BACKEND_API_URL", "https://models.internal/api")
	t.Setenv("BACKEND_TIMEOUT", "30")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("METRICS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "https://models.internal/api", cfg.Backend.URL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_ExpandsPlaceholders(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_BACKEND_HOST", "backend.example")
	path := writeConfig(t, `
backend:
  url: "http://${TEST_BACKEND_HOST}:${TEST_BACKEND_PORT:-8001}/api"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://backend.example:8001/api", cfg.Backend.URL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{name: "malformed yaml", content: "server: [", wantErr: "failed to parse config file"},
		{name: "relative backend url", content: "backend:\n  url: localhost:8001\n", wantErr: "backend.url"},
		{name: "unknown cache type", content: "cache:\n  type: memcached\n", wantErr: "cache.type"},
		{name: "redis without url", content: "cache:\n  type: redis\n", wantErr: "cache.redis_url"},
		{name: "unknown log format", content: "logging:\n  format: xml\n", wantErr: "logging.format"},
		{name: "bad duration env", env: map[string]string{"BACKEND_TIMEOUT": "soon"}, wantErr: "BACKEND_TIMEOUT"},
		{name: "bad bool env", env: map[string]string{"METRICS_ENABLED": "maybe"}, wantErr: "METRICS_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, tt.content)

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestExpandString(t *testing.T) {
	t.Setenv("TEST_EXPAND_KEY", "value")
	t.Setenv("TEST_EXPAND_EMPTY", "")

	tests := []struct {
		input    string
		expected string
	}{
		{input: "", expected: ""},
		{input: "plain", expected: "plain"},
		{input: "${TEST_EXPAND_KEY}", expected: "value"},
		{input: "pre-${TEST_EXPAND_KEY}-post", expected: "pre-value-post"},
		{input: "${TEST_EXPAND_KEY:-fallback}", expected: "value"},
		{input: "${TEST_EXPAND_EMPTY:-fallback}", expected: "fallback"},
		{input: "${TEST_EXPAND_UNSET_XYZ}", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandString(tt.input))
		})
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg, "the example documents the defaults")
}

func TestDefaults_StaticDirShipsWithRepo(t *testing.T) {
	dir := filepath.Join("..", Defaults().Server.StaticDir)

	info, err := os.Stat(dir)
	require.NoError(t, err, "the default static dir is served relative to the repo root")
	assert.True(t, info.IsDir())
}
