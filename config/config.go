package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment names recognized in app.environment
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DataPaths holds data directory and file path configuration.
// These paths can be overridden via environment variables.
type DataPaths struct {
	// DataDir is the base data directory (TASKVAULT_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the SQLite database file path (TASKVAULT_SQLITE_PATH, default: ${DataDir}/taskvault.db)
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Config holds all configuration for the TaskVault service
type Config struct {
	App struct {
		// Name is the application name reported by the liveness endpoints
		Name string `mapstructure:"name"`
		// Version is the application version reported by the liveness endpoints
		Version string `mapstructure:"version"`
		// Debug enables verbose request logging
		Debug bool `mapstructure:"debug"`
		// Environment is "development" or "production"
		Environment string `mapstructure:"environment"`
	} `mapstructure:"app"`

	// DataPaths holds all data directory configuration
	DataPaths DataPaths `mapstructure:"data_paths"`

	API struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
		// AllowedOrigins is the CORS origin allow-list; "*" allows any origin
		AllowedOrigins []string `mapstructure:"allowed_origins"`
		TrustProxy     bool     `mapstructure:"trust_proxy"`
		RateLimit      struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			Burst             int `mapstructure:"burst"`
			// Login has its own, much stricter bucket
			Login struct {
				RequestsPerMinute int `mapstructure:"requests_per_minute"`
				Burst             int `mapstructure:"burst"`
			} `mapstructure:"login"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Auth struct {
		JWTSecret  string        `mapstructure:"jwt_secret"`
		JWTExpiry  time.Duration `mapstructure:"jwt_expiry"`
		BcryptCost int           `mapstructure:"bcrypt_cost"`
	} `mapstructure:"auth"`

	// Redis backs the token revocation store when enabled; the in-memory
	// store is used otherwise.
	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.name", "TaskVault API")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.environment", EnvDevelopment)

	viper.SetDefault("data_paths.data_dir", "./data")
	viper.SetDefault("data_paths.sqlite_path", "") // Empty = derive from data_dir

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8000)
	viper.SetDefault("api.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("api.trust_proxy", false)
	viper.SetDefault("api.rate_limit.requests_per_second", 50)
	viper.SetDefault("api.rate_limit.burst", 100)
	viper.SetDefault("api.rate_limit.login.requests_per_minute", 5)
	viper.SetDefault("api.rate_limit.login.burst", 5)

	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.jwt_expiry", 30*time.Minute)
	viper.SetDefault("auth.bcrypt_cost", 12)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("metrics.enabled", true)
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix("TASKVAULT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicit environment variable bindings for the settings the
	// deployment environment usually overrides
	_ = viper.BindEnv("app.name", "TASKVAULT_APP_NAME")
	_ = viper.BindEnv("app.version", "TASKVAULT_APP_VERSION")
	_ = viper.BindEnv("app.debug", "TASKVAULT_DEBUG")
	_ = viper.BindEnv("app.environment", "TASKVAULT_ENVIRONMENT")
	_ = viper.BindEnv("api.allowed_origins", "TASKVAULT_CORS_ORIGINS")
	_ = viper.BindEnv("auth.jwt_secret", "TASKVAULT_JWT_SECRET")
	_ = viper.BindEnv("data_paths.data_dir", "TASKVAULT_DATA_DIR")
	_ = viper.BindEnv("data_paths.sqlite_path", "TASKVAULT_SQLITE_PATH")
	_ = viper.BindEnv("redis.addr", "TASKVAULT_REDIS_ADDR")
}

// validateConfig checks configuration invariants that would otherwise
// surface as confusing runtime failures.
func validateConfig(config *Config) error {
	if config.API.Port < 1 || config.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535, got %d", config.API.Port)
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required: set TASKVAULT_JWT_SECRET or auth.jwt_secret in config.yaml")
	}
	if len(config.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters (256 bits) for security")
	}

	if config.Auth.BcryptCost < 10 || config.Auth.BcryptCost > 16 {
		return fmt.Errorf("auth.bcrypt_cost must be between 10 and 16, got %d", config.Auth.BcryptCost)
	}

	if config.Auth.JWTExpiry <= 0 {
		return fmt.Errorf("auth.jwt_expiry must be positive, got %s", config.Auth.JWTExpiry)
	}

	switch config.App.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("app.environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, config.App.Environment)
	}

	for _, origin := range config.API.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid CORS origin %q: must be an absolute URL or \"*\"", origin)
		}
	}

	return nil
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.API.AllowedOrigins = normalizeOrigins(config.API.AllowedOrigins)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Resolve data paths (derive from data_dir if not explicitly set)
	config.ResolveDataPaths()

	return &config, nil
}

// normalizeOrigins splits comma-separated origin lists (the form env vars
// arrive in) and trims whitespace around each entry.
func normalizeOrigins(origins []string) []string {
	var out []string
	for _, entry := range origins {
		for _, origin := range strings.Split(entry, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}

// ResolveDataPaths resolves all data paths, deriving from DataDir if not explicitly set
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
		c.DataPaths.DataDir = dataDir
	}

	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = filepath.Join(dataDir, "taskvault.db")
	} else if !filepath.IsAbs(c.DataPaths.SQLitePath) {
		c.DataPaths.SQLitePath = filepath.Clean(c.DataPaths.SQLitePath)
	}
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// GetDataDir returns the base data directory.
func (c *Config) GetDataDir() string {
	if c.DataPaths.DataDir == "" {
		return "./data"
	}
	return c.DataPaths.DataDir
}

// GetSQLitePath returns the SQLite database file path.
func (c *Config) GetSQLitePath() string {
	if c.DataPaths.SQLitePath == "" {
		return filepath.Join(c.GetDataDir(), "taskvault.db")
	}
	return c.DataPaths.SQLitePath
}

// ListenAddr returns the host:port the API server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}
