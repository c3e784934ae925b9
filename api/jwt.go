package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"taskvault/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// generateJWT generates a signed token for username. The returned claims
// carry the jti and expiry needed for later revocation.
func generateJWT(username string, cfg *config.Config) (string, *Claims, error) {
	expirationTime := time.Now().Add(cfg.Auth.JWTExpiry)

	// Unique JTI enables per-token revocation
	jti, err := generateJTI()
	if err != nil {
		return "", nil, err
	}

	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "taskvault",
			Subject:   username,
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return "", nil, err
	}

	return tokenString, claims, nil
}

// validateJWT validates a token and returns its claims. Revocation is
// checked against the token store when one is provided.
func validateJWT(ctx context.Context, tokenString string, cfg *config.Config, tokens TokenStore) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.Auth.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("token has expired")
	}
	if claims.NotBefore != nil && claims.NotBefore.After(time.Now()) {
		return nil, errors.New("token not yet valid")
	}

	if tokens != nil && claims.ID != "" && tokens.IsRevoked(ctx, claims.ID) {
		return nil, errors.New("token has been revoked")
	}

	return claims, nil
}

// validateJWT validates a token against this server's configuration and token store.
func (a *API) validateJWT(ctx context.Context, tokenString string) (*Claims, error) {
	return validateJWT(ctx, tokenString, a.config, a.tokens)
}

// generateJTI generates a unique JWT ID with 256-bit entropy
func generateJTI() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
