package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridexchange/gridex/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "pebble", cfg.Storage.Backend)
	require.Equal(t, "data", cfg.Storage.Dir)
	require.Equal(t, 8080, cfg.API.Port)
	require.Equal(t, 30*time.Second, cfg.API.Timeout)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, "/metrics", cfg.Metrics.Path)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
storage:
  backend: memory
api:
  host: 127.0.0.1
  port: 9090
log:
  level: debug
  format: json
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Storage.Backend)
	require.Equal(t, "127.0.0.1:9090", cfg.API.Addr())
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Storage.Backend = "flatfile"
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Storage.Dir = ""
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.API.Port = 0
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Metrics.Path = ""
	require.Error(t, bad.Validate())
}
