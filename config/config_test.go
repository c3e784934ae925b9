package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newValidConfig returns a Config that passes validation.
func newValidConfig() Config {
	var cfg Config
	cfg.App.Name = "TaskVault API"
	cfg.App.Version = "1.0.0"
	cfg.App.Environment = EnvDevelopment
	cfg.API.Host = "0.0.0.0"
	cfg.API.Port = 8000
	cfg.API.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Auth.JWTExpiry = 30 * time.Minute
	cfg.Auth.BcryptCost = 12
	return cfg
}

func TestValidateConfigAccepts(t *testing.T) {
	cfg := newValidConfig()
	assert.NoError(t, validateConfig(&cfg))

	cfg.API.AllowedOrigins = []string{"*"}
	assert.NoError(t, validateConfig(&cfg), "Wildcard origin is valid")

	cfg.App.Environment = EnvProduction
	assert.NoError(t, validateConfig(&cfg))
}

func TestValidateConfigRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.API.Port = 0 }},
		{"port too high", func(c *Config) { c.API.Port = 70000 }},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "too-short" }},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 4 }},
		{"bcrypt cost too high", func(c *Config) { c.Auth.BcryptCost = 20 }},
		{"zero jwt expiry", func(c *Config) { c.Auth.JWTExpiry = 0 }},
		{"unknown environment", func(c *Config) { c.App.Environment = "staging" }},
		{"relative origin", func(c *Config) { c.API.AllowedOrigins = []string{"localhost:3000"} }},
		{"garbage origin", func(c *Config) { c.API.AllowedOrigins = []string{"://nope"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newValidConfig()
			tc.mutate(&cfg)
			assert.Error(t, validateConfig(&cfg))
		})
	}
}

func TestNormalizeOrigins(t *testing.T) {
	got := normalizeOrigins([]string{"http://a.example.com, http://b.example.com", " http://c.example.com "})
	assert.Equal(t, []string{
		"http://a.example.com",
		"http://b.example.com",
		"http://c.example.com",
	}, got)

	assert.Nil(t, normalizeOrigins([]string{"", " "}), "Blank entries are dropped")
}

func TestResolveDataPaths(t *testing.T) {
	var cfg Config
	cfg.ResolveDataPaths()
	assert.Equal(t, "./data", cfg.DataPaths.DataDir)
	assert.Equal(t, filepath.Join("./data", "taskvault.db"), cfg.DataPaths.SQLitePath)

	cfg = Config{}
	cfg.DataPaths.DataDir = "/var/lib/taskvault"
	cfg.ResolveDataPaths()
	assert.Equal(t, filepath.Join("/var/lib/taskvault", "taskvault.db"), cfg.DataPaths.SQLitePath)

	cfg = Config{}
	cfg.DataPaths.SQLitePath = "/custom/path.db"
	cfg.ResolveDataPaths()
	assert.Equal(t, "/custom/path.db", cfg.DataPaths.SQLitePath, "Explicit path wins over derivation")
}

func TestListenAddr(t *testing.T) {
	cfg := newValidConfig()
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr())
}

func TestIsProduction(t *testing.T) {
	cfg := newValidConfig()
	assert.False(t, cfg.IsProduction())

	cfg.App.Environment = EnvProduction
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("TASKVAULT_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "TaskVault API", cfg.App.Name)
	assert.Equal(t, "1.0.0", cfg.App.Version)
	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, 8000, cfg.API.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Auth.JWTExpiry)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, filepath.Join("./data", "taskvault.db"), cfg.GetSQLitePath())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("TASKVAULT_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("TASKVAULT_APP_NAME", "Custom Name")
	t.Setenv("TASKVAULT_CORS_ORIGINS", "http://one.example.com,http://two.example.com")
	t.Setenv("TASKVAULT_DATA_DIR", "/tmp/taskvault-test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "Custom Name", cfg.App.Name)
	assert.Equal(t, []string{"http://one.example.com", "http://two.example.com"}, cfg.API.AllowedOrigins,
		"Comma-separated env origins split into a list")
	assert.Equal(t, "/tmp/taskvault-test", cfg.GetDataDir())
	assert.Equal(t, filepath.Join("/tmp/taskvault-test", "taskvault.db"), cfg.GetSQLitePath())
}

func TestLoadConfigMissingSecretFails(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}
