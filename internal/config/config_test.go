package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SALES_CONFIG", "SALES_ADDR", "DATABASE_URL", "LOG_LEVEL", "OTEL_ENDPOINT", "OTEL_AUTH_HEADER"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.TracingEnabled())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sales.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
database_url: "postgres://file"
log_level: debug
otel_endpoint: "collector:4318"
`), 0o644))
	t.Setenv("SALES_CONFIG", path)
	t.Setenv("DATABASE_URL", "postgres://env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL, "environment wins over the file")
	assert.True(t, cfg.TracingEnabled())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SALES_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("addr: [unterminated"), 0o644))
		t.Setenv("SALES_CONFIG", path)
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LOG_LEVEL", "loud")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "invalid log level")
	})
}
