package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talaria/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 7700, cfg.Match.Port)
	assert.Equal(t, uint64(1000), cfg.Ingest.PriceTick)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TALARIA_MATCH_PORT", "9999")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Match.Port)
}
