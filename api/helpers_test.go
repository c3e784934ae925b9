package api

// Shared helpers for API tests. Each test gets its own temp SQLite database
// so tests can run in parallel without interfering with each other.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"taskvault/config"
	"taskvault/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret = "test-secret-key-for-jwt-testing-minimum-32-chars-long"
	testUsername  = "testuser"
	testPassword  = "testpass123"
	testEmail     = "testuser@example.com"
)

// testConfig returns a config with very high rate limits so fast-running
// tests never trip the per-IP buckets.
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "TaskVault API"
	cfg.App.Version = "1.0.0"
	cfg.App.Environment = config.EnvDevelopment

	cfg.API.Host = "127.0.0.1"
	cfg.API.Port = 8000
	cfg.API.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.API.TrustProxy = false
	cfg.API.RateLimit.RequestsPerSecond = 100000
	cfg.API.RateLimit.Burst = 100000
	cfg.API.RateLimit.Login.RequestsPerMinute = 100000
	cfg.API.RateLimit.Login.Burst = 100000

	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Auth.JWTExpiry = 15 * time.Minute
	cfg.Auth.BcryptCost = 10 // Minimum allowed cost, keeps tests fast

	cfg.Metrics.Enabled = true
	return cfg
}

// setupTestAPI creates an API backed by a fresh SQLite database with one
// seeded user (testuser/testpass123).
func setupTestAPI(t *testing.T) (*API, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), fmt.Sprintf("test_api_%d.db", time.Now().UnixNano()))

	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()

	cfg := testConfig()

	sqlite, err := storage.NewSQLite(dbPath, sugar)
	require.NoError(t, err, "Failed to create test database")

	userStorage := storage.NewSQLiteUserStorage(sqlite, cfg.Auth.BcryptCost, sugar)
	taskStorage := storage.NewSQLiteTaskStorage(sqlite, sugar)

	api, err := NewAPI(userStorage, taskStorage, NewMemoryTokenStore(), cfg, sugar)
	require.NoError(t, err, "Failed to construct API")

	err = userStorage.CreateUser(context.Background(), &storage.User{
		Username: testUsername,
		Email:    testEmail,
		Password: testPassword,
	})
	require.NoError(t, err, "Failed to seed test user")

	cleanup := func() {
		api.Stop(context.Background())
		sqlite.Close()
	}
	return api, cleanup
}

// loginTestUser logs in via the HTTP API and returns the JWT.
func loginTestUser(t *testing.T, api *API, username, password string) string {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, "Login should succeed for %s: %s", username, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token, "Login response should carry a token")
	return resp.Token
}

// doJSON issues a request with an optional bearer token and JSON body.
func doJSON(api *API, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, req)
	return w
}

// registerTestUser registers a user via the HTTP API and fails the test on error.
func registerTestUser(t *testing.T, api *API, username, email, password string) {
	t.Helper()

	w := doJSON(api, "POST", "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, "Register should succeed for %s: %s", username, w.Body.String())
}
