package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Store.WriteTimeout)
	assert.Equal(t, DatasetsMock, cfg.Datasets.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Charts.CacheTTL)
	assert.Equal(t, TransportFiber, cfg.Server.Transport)
	assert.Equal(t, 15*time.Minute, cfg.Server.SessionIdleTimeout)
	assert.Equal(t, time.Minute, cfg.Server.SessionSweepInterval)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Address)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reportboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9090"
  session_idle_timeout: 30m
store:
  driver: redis
  write_timeout: 3s
  redis:
    addr: "cache:6379"
    db: 2
charts:
  cache_ttl: 1m
`), 0o600))
	t.Setenv("REPORTBOARD_STORE_REDIS_DB", "4")
	t.Setenv("REPORTBOARD_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 4, cfg.Store.Redis.DB)
	assert.Equal(t, 3*time.Second, cfg.Store.WriteTimeout)
	assert.Equal(t, time.Minute, cfg.Charts.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionIdleTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsInvalidDrivers(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("REPORTBOARD_STORE_DRIVER", "postgres")
	_, err := Load("")
	assert.ErrorContains(t, err, "store.driver")

	t.Setenv("REPORTBOARD_STORE_DRIVER", "memory")
	t.Setenv("REPORTBOARD_DATASETS_DRIVER", "http")
	_, err = Load("")
	assert.ErrorContains(t, err, "datasets.base_url")

	t.Setenv("REPORTBOARD_DATASETS_DRIVER", "mock")
	t.Setenv("REPORTBOARD_SERVER_TRANSPORT", "grpc")
	_, err = Load("")
	assert.ErrorContains(t, err, "server.transport")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
