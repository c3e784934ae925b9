package api

import (
	"net/http"
	"strings"
)

// authCookieName is the httpOnly cookie carrying the JWT for browser clients.
const authCookieName = "auth_token"

// jwtAuthMiddleware provides JWT authentication
func (a *API) jwtAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := extractToken(r)
		if !ok {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		claims, err := a.validateJWT(r.Context(), tokenString)
		if err != nil {
			a.logger.Debugw("Rejected JWT", "error", err.Error())
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := WithUsername(r.Context(), claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken pulls the JWT from the Authorization header, falling back to
// the auth cookie for browser clients.
func extractToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), true
	}

	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}
