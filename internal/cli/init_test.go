package cli

import (
	"context"
	"path/filepath"
	"testing"

	"runpay/internal/config"
	"runpay/internal/log"
	"runpay/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("AMQP_URL", "")

	cfg, err := LoadConfig(false)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)

	_, err = LoadConfig(true)
	assert.ErrorContains(t, err, "AMQP_URL is required")
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := LoadConfig(false)
	assert.ErrorContains(t, err, "invalid port")
}

func TestLoadSeedMemory(t *testing.T) {
	cfg := &config.Config{DataBackend: "memory", SeedFile: filepath.Join(t.TempDir(), "missing.yaml")}
	s, cleanup, err := LoadSeed(context.Background(), cfg, log.Discard(), nil)
	require.NoError(t, err)
	assert.Nil(t, cleanup)
	assert.Equal(t, "Ben", s.Employees[0].Name)
}

func TestLoadSeedSQLite(t *testing.T) {
	cfg := &config.Config{DataBackend: "sqlite", SQLiteDBPath: filepath.Join(t.TempDir(), "runpay.db")}
	var opened bool
	s, cleanup, err := LoadSeed(context.Background(), cfg, log.Discard(), func(*storage.SQLiteRepository) { opened = true })
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	defer cleanup()

	assert.True(t, opened)
	assert.Len(t, s.Integrations, 3)
}

func TestGracefulShutdownFollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := GracefulShutdown(parent, log.Discard())
	defer stop()

	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
