package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"taskvault/api"
	"taskvault/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureDataDirectories(t *testing.T) {
	sugar := zap.NewNop().Sugar()

	var cfg config.Config
	cfg.DataPaths.DataDir = filepath.Join(t.TempDir(), "nested", "data")

	require.NoError(t, EnsureDataDirectories(&cfg, sugar))

	info, err := os.Stat(cfg.DataPaths.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// The write-test file must not be left behind
	entries, err := os.ReadDir(cfg.DataPaths.DataDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Idempotent on an existing directory
	assert.NoError(t, EnsureDataDirectories(&cfg, sugar))
}

func TestEnsureDataDirectoriesUnwritableParent(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("Permission checks don't apply to root")
	}
	sugar := zap.NewNop().Sugar()

	parent := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(parent, 0555))

	var cfg config.Config
	cfg.DataPaths.DataDir = filepath.Join(parent, "data")

	err := EnsureDataDirectories(&cfg, sugar)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Remediation", "Failures should tell the operator what to do")
}

func TestInitTokenStoreMemory(t *testing.T) {
	sugar := zap.NewNop().Sugar()

	var cfg config.Config
	cfg.Redis.Enabled = false

	store, err := InitTokenStore(&cfg, sugar)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*api.MemoryTokenStore)
	assert.True(t, ok, "Redis disabled means the in-memory store")
}

func TestInitTokenStoreRedis(t *testing.T) {
	sugar := zap.NewNop().Sugar()
	mr := miniredis.RunT(t)

	var cfg config.Config
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	store, err := InitTokenStore(&cfg, sugar)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*api.RedisTokenStore)
	assert.True(t, ok)
}

func TestInitTokenStoreRedisUnreachable(t *testing.T) {
	sugar := zap.NewNop().Sugar()

	var cfg config.Config
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := InitTokenStore(&cfg, sugar)
	assert.Error(t, err, "Connection failure surfaces so the caller can fall back")
}

func TestStorerOrNilHelpers(t *testing.T) {
	assert.Nil(t, userStorerOrNil(nil), "A nil pointer must not become a non-nil interface")
	assert.Nil(t, taskStorerOrNil(nil))
}
