package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 10, cfg.SchedulerInterval)
	assert.Equal(t, 30, cfg.GuardInterval)
	assert.True(t, filepath.IsAbs(cfg.ProfilesRoot))
	assert.True(t, filepath.IsAbs(cfg.KeywordsFile))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GB_PORT", "9001")
	t.Setenv("GB_MODE", "development")
	t.Setenv("GB_PROFILES_ROOT", "/data/profiles")

	cfg := Load()
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "development", cfg.Mode)
	assert.Equal(t, "/data/profiles", cfg.ProfilesRoot)
}
