package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, uint16(8080), cfg.HTTP.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 64, cfg.Broker.SendBufferSize)
	assert.Equal(t, 256, cfg.Broker.AnnounceBufferSize)
	assert.Equal(t, "proofdeck", cfg.Mongo.Database)
	assert.True(t, cfg.AMQP.Enabled)
	assert.Equal(t, 10, cfg.RateLimiter.MaxRatePerSecond)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
http:
  port: 9090
broker:
  send_buffer_size: 128
mongo:
  database: proofdeck_test
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint16(9090), cfg.HTTP.Port)
	assert.Equal(t, 128, cfg.Broker.SendBufferSize)
	assert.Equal(t, "proofdeck_test", cfg.Mongo.Database)

	// Unset keys still fall back to defaults.
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("MONGODB_DATABASE", "from_env")
	t.Setenv("BROKER_SEND_BUFFER_SIZE", "32")
	t.Setenv("BROKER_ANNOUNCE_BUFFER_SIZE", "512")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, uint16(7070), cfg.HTTP.Port)
	assert.Equal(t, "from_env", cfg.Mongo.Database)
	assert.Equal(t, 32, cfg.Broker.SendBufferSize)
	assert.Equal(t, 512, cfg.Broker.AnnounceBufferSize)
}
