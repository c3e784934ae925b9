package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"taskvault/api"
	"taskvault/config"

	"go.uber.org/zap"
)

// EnsureDataDirectories creates the data directory with proper permissions.
// This is a pre-flight check that runs before storage initialization.
func EnsureDataDirectories(cfg *config.Config, sugar *zap.SugaredLogger) error {
	dir := cfg.GetDataDir()

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path for %s: %w", dir, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w\n"+
			"  Remediation: Ensure the parent directory exists and is writable\n"+
			"  For Docker: Check volume mount permissions\n"+
			"  For bare metal: Run 'mkdir -p %s && chmod 755 %s'", dir, err, absPath, absPath)
	}

	// Verify write permissions
	testFile := filepath.Join(absPath, ".taskvault_write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return fmt.Errorf("directory %s is not writable: %w\n"+
			"  Remediation: Check file system permissions\n"+
			"  For Docker: Ensure volume is mounted with write access\n"+
			"  For bare metal: Run 'chmod -R u+w %s'", dir, err, absPath)
	}
	os.Remove(testFile)

	sugar.Infow("Data directory ready", "path", absPath)
	return nil
}

// InitTokenStore builds the token revocation store: Redis-backed when
// configured, in-memory otherwise. A Redis connection error is returned to
// the caller so it can decide whether to fall back.
func InitTokenStore(cfg *config.Config, sugar *zap.SugaredLogger) (api.TokenStore, error) {
	if !cfg.Redis.Enabled {
		return api.NewMemoryTokenStore(), nil
	}

	store, err := api.NewRedisTokenStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	sugar.Infow("Redis token store connected", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return store, nil
}
