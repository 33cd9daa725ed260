package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "8081", cfg.WSPort)
	assert.Equal(t, "championship", cfg.DefaultLeague)
	assert.Equal(t, BackendMemory, cfg.SavesBackend)
	assert.Equal(t, 5, cfg.AutosaveKeep)
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SAVES_BACKEND", "Redis")
	t.Setenv("AUTOSAVE_KEEP", "8")
	t.Setenv("SESSION_IDLE_TTL", "30m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PUBLISH_EVENTS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, BackendRedis, cfg.SavesBackend)
	assert.Equal(t, 8, cfg.AutosaveKeep)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.PublishEvents)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("SAVES_BACKEND", "sqlite")
	_, err := Load()
	assert.ErrorContains(t, err, "invalid SAVES_BACKEND")
}

func TestValidate_AutosaveKeep(t *testing.T) {
	cfg := Config{SavesBackend: "memory", DataDir: "./data", SessionIdleTTL: time.Hour}
	assert.Error(t, cfg.Validate())
	cfg.AutosaveKeep = 1
	assert.NoError(t, cfg.Validate())
}
