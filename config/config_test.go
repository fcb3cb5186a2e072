package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApplyFileOverridesBools(t *testing.T) {
	cfg := Config{
		RequireRegisteredEmail: true,
		Debug:                  false,
	}
	path := writeConfigFile(t, "require_registered_email: false\ndebug: true\n")

	require.NoError(t, cfg.applyFile(path))
	assert.False(t, cfg.RequireRegisteredEmail, "explicit false in the file wins over the true default")
	assert.True(t, cfg.Debug)
}

func TestApplyFileLeavesAbsentBools(t *testing.T) {
	cfg := Config{
		RequireRegisteredEmail: true,
		DBUrl:                  "default.sqlite",
	}
	path := writeConfigFile(t, "db_url: other.sqlite\n")

	require.NoError(t, cfg.applyFile(path))
	assert.True(t, cfg.RequireRegisteredEmail, "absent keys keep their defaults")
	assert.False(t, cfg.Debug)
	assert.Equal(t, "other.sqlite", cfg.DBUrl)
}

func TestApplyFileScalars(t *testing.T) {
	cfg := Config{}
	path := writeConfigFile(t, "token_secret: s3cret\npoll_interval: 5s\npoll_max_attempts: 12\n")

	require.NoError(t, cfg.applyFile(path))
	assert.Equal(t, "s3cret", cfg.TokenSecret)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 12, cfg.PollMaxAttempts)
}
