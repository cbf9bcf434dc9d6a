package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  url: "ws://game.example.com/ws"
  handshake_timeout: 5

client:
  request_timeout: 15
  send_buffer: 64
  notice_buffer: 4

redis:
  enabled: true
  addr: "redis:6379"
  password: "secret"
  db: 1
  history: 10
  ttl: 30

log:
  level: debug
  console: true
`
	cfg, err := Load(writeConfig(t, "config.yaml", content))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "ws://game.example.com/ws", cfg.Server.URL)
	assert.Equal(t, 5, cfg.Server.HandshakeTimeout)
	assert.Equal(t, 15, cfg.Client.RequestTimeout)
	assert.Equal(t, 64, cfg.Client.SendBuffer)
	assert.Equal(t, 4, cfg.Client.NoticeBuffer)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, 10, cfg.Redis.History)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Console)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "invalid.yaml", "invalid: yaml: :::"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "empty.yaml", `{}`))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, defaultServerURL, cfg.Server.URL)
	assert.Equal(t, defaultHandshakeTimeout, cfg.Server.HandshakeTimeout)
	assert.Equal(t, defaultRequestTimeout, cfg.Client.RequestTimeout)
	assert.Equal(t, defaultSendBuffer, cfg.Client.SendBuffer)
	assert.Equal(t, defaultRedisAddr, cfg.Redis.Addr)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, defaultLogLevel, cfg.Log.Level)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, defaultServerURL, cfg.Server.URL)
	assert.Equal(t, 10*time.Second, cfg.Client.RequestTimeoutDuration())
}

func TestDurationMethods(t *testing.T) {
	t.Parallel()

	server := &ServerConfig{HandshakeTimeout: 3}
	client := &ClientConfig{RequestTimeout: 10}
	redis := &RedisConfig{TTL: 90}

	assert.Equal(t, 3*time.Second, server.HandshakeTimeoutDuration())
	assert.Equal(t, 10*time.Second, client.RequestTimeoutDuration())
	assert.Equal(t, 90*time.Minute, redis.TTLDuration())
}

func TestLoadFromEnv(t *testing.T) {
	// Not parallel because it modifies environment variables
	t.Setenv("FORSALE_SERVER_URL", "ws://env-host:9000/ws")
	t.Setenv("FORSALE_REQUEST_TIMEOUT", "20")
	t.Setenv("FORSALE_REDIS_ENABLED", "true")
	t.Setenv("FORSALE_REDIS_ADDR", "env-redis:6380")
	t.Setenv("FORSALE_LOG_LEVEL", "warn")
	t.Setenv("FORSALE_HANDSHAKE_TIMEOUT", "not-a-number")

	cfg, err := Load(writeConfig(t, "env.yaml", `{}`))
	require.NoError(t, err)

	assert.Equal(t, "ws://env-host:9000/ws", cfg.Server.URL)
	assert.Equal(t, 20, cfg.Client.RequestTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "env-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	// invalid values fall back to the existing setting
	assert.Equal(t, defaultHandshakeTimeout, cfg.Server.HandshakeTimeout)
}
