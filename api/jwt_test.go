package api

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	cfg := testConfig()

	token, claims, err := generateJWT("alice", cfg)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotNil(t, claims)

	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "taskvault", claims.Issuer)
	assert.Len(t, claims.ID, 64, "JTI should be 32 random bytes hex-encoded")
	assert.WithinDuration(t, time.Now().Add(cfg.Auth.JWTExpiry), claims.ExpiresAt.Time, time.Minute)

	parsed, err := validateJWT(context.Background(), token, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", parsed.Username)
	assert.Equal(t, claims.ID, parsed.ID)
}

func TestValidateJWTWrongSecret(t *testing.T) {
	cfg := testConfig()
	token, _, err := generateJWT("alice", cfg)
	require.NoError(t, err)

	other := testConfig()
	other.Auth.JWTSecret = "a-completely-different-secret-at-least-32-chars"

	_, err = validateJWT(context.Background(), token, other, nil)
	assert.Error(t, err, "Token signed with another secret must be rejected")
}

func TestValidateJWTExpired(t *testing.T) {
	cfg := testConfig()

	claims := &Claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Issuer:    "taskvault",
			Subject:   "alice",
			ID:        "expired-test-jti",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.Auth.JWTSecret))
	require.NoError(t, err)

	_, err = validateJWT(context.Background(), tokenString, cfg, nil)
	assert.Error(t, err, "Expired token must be rejected")
}

// Tokens signed with "none" or any non-HMAC algorithm must never validate.
func TestValidateJWTRejectsNoneAlgorithm(t *testing.T) {
	cfg := testConfig()

	claims := &Claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = validateJWT(context.Background(), tokenString, cfg, nil)
	assert.Error(t, err)
}

func TestValidateJWTGarbage(t *testing.T) {
	cfg := testConfig()

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := validateJWT(context.Background(), token, cfg, nil)
		assert.Error(t, err, "Token %q must be rejected", token)
	}
}

func TestValidateJWTRevoked(t *testing.T) {
	cfg := testConfig()
	tokens := NewMemoryTokenStore()
	defer tokens.Close()

	tokenString, claims, err := generateJWT("alice", cfg)
	require.NoError(t, err)

	_, err = validateJWT(context.Background(), tokenString, cfg, tokens)
	require.NoError(t, err, "Token should validate before revocation")

	require.NoError(t, tokens.Revoke(context.Background(), claims.ID, claims.ExpiresAt.Time))

	_, err = validateJWT(context.Background(), tokenString, cfg, tokens)
	assert.Error(t, err, "Revoked token must be rejected")
}

func TestGenerateJTIUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		jti, err := generateJTI()
		require.NoError(t, err)
		require.Len(t, jti, 64)
		assert.False(t, seen[jti], "JTIs must be unique")
		seen[jti] = true
	}
}
