package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 15, cfg.StaleJobMinutes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, time.Hour, cfg.ProgressTTL())
}

func TestPollInterval_NonPositiveFallsBack(t *testing.T) {
	cfg := &Config{ProgressPollIntervalMs: 0}
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
}
