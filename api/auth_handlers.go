package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"taskvault/core"
	"taskvault/metrics"
	"taskvault/storage"

	"github.com/go-playground/validator/v10"
)

// loginBodyLimit bounds auth request bodies; credentials are small.
const loginBodyLimit = 10 * 1024

// register godoc
//
//	@Summary		Register a new user
//	@Description	Creates a user account with a bcrypt-hashed password
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	storage.PublicUser
//	@Failure		400	{string}	string	"Bad Request"
//	@Failure		409	{string}	string	"Conflict"
//	@Failure		503	{string}	string	"Service Unavailable"
//	@Router			/api/auth/register [post]
func (a *API) register(w http.ResponseWriter, r *http.Request) {
	if a.userStorage == nil {
		writeError(w, http.StatusServiceUnavailable, "User storage not available", nil, a.logger)
		return
	}

	var req struct {
		Username string `json:"username" validate:"required,min=3,max=50"`
		Email    string `json:"email" validate:"required,email,max=255"`
		Password string `json:"password" validate:"required,min=8,max=128"`
	}

	if err := decodeJSONBody(w, r, &req, loginBodyLimit); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body", err, a.logger)
		return
	}

	if err := validateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid registration payload", err, a.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), core.DBOperationTimeout)
	defer cancel()

	user := &storage.User{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}

	if err := a.userStorage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			writeError(w, http.StatusConflict, "Username already taken", nil, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create user", err, a.logger)
		return
	}

	a.logger.Infow("User registered",
		"username", user.Username,
		"source_ip", getRealIP(r, a.config.API.TrustProxy))

	a.respondJSON(w, user.Public(), http.StatusCreated)
}

// login godoc
//
//	@Summary		Authenticate user
//	@Description	Authenticates a user with username and password, returns a JWT
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Failure		400	{string}	string	"Bad Request"
//	@Failure		401	{string}	string	"Unauthorized"
//	@Failure		429	{string}	string	"Too Many Requests"
//	@Failure		503	{string}	string	"Service Unavailable"
//	@Router			/api/auth/login [post]
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	if a.userStorage == nil {
		writeError(w, http.StatusServiceUnavailable, "User storage not available", nil, a.logger)
		return
	}

	// Pre-authentication rate limiting
	ip := getRealIP(r, a.config.API.TrustProxy)
	if !a.allowLogin(ip) {
		a.logger.Errorf("Login rate limit exceeded for IP: %s", ip)
		metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
		writeError(w, http.StatusTooManyRequests, "Too many requests", nil, a.logger)
		return
	}

	var creds struct {
		Username string `json:"username" validate:"required,min=3,max=50"`
		Password string `json:"password" validate:"required,min=8,max=128"`
	}

	if err := decodeJSONBody(w, r, &creds, loginBodyLimit); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body", err, a.logger)
		return
	}

	validate := validator.New()
	if err := validate.Struct(creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid login credentials format", err, a.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), core.DBOperationTimeout)
	defer cancel()

	user, err := a.userStorage.ValidateCredentials(ctx, creds.Username, creds.Password)
	if err != nil {
		// Generic message: don't reveal whether the user exists
		a.logger.Infow("AUDIT: Login attempt failed",
			"action", "login",
			"outcome", "failure",
			"username", creds.Username,
			"source_ip", ip)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil, a.logger)
		return
	}

	token, _, err := generateJWT(user.Username, a.config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", err, a.logger)
		return
	}

	// httpOnly cookie so browser clients never touch the token from JS
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(a.config.Auth.JWTExpiry.Seconds()),
	})

	a.logger.Infow("AUDIT: User login successful",
		"action", "login",
		"outcome", "success",
		"username", user.Username,
		"source_ip", ip)
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	a.respondJSON(w, map[string]interface{}{
		"token":      token,
		"token_type": "bearer",
		"expires_in": int(a.config.Auth.JWTExpiry.Seconds()),
		"user":       user.Public(),
	}, http.StatusOK)
}

// logout godoc
//
//	@Summary		Log out
//	@Description	Revokes the presented token and clears the auth cookie
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		401	{string}	string	"Unauthorized"
//	@Router			/api/auth/logout [post]
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := extractToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required", nil, a.logger)
		return
	}

	claims, err := a.validateJWT(r.Context(), tokenString)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token", nil, a.logger)
		return
	}

	if claims.ID != "" && claims.ExpiresAt != nil {
		if err := a.tokens.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to revoke token", err, a.logger)
			return
		}
	}

	// Expire the cookie
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})

	a.logger.Infow("AUDIT: User logout",
		"action", "logout",
		"outcome", "success",
		"username", claims.Username)

	a.respondJSON(w, map[string]string{"message": "Logout successful"}, http.StatusOK)
}

// me godoc
//
//	@Summary		Current user
//	@Description	Returns the authenticated user's account
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	storage.PublicUser
//	@Failure		401	{string}	string	"Unauthorized"
//	@Failure		503	{string}	string	"Service Unavailable"
//	@Router			/api/auth/me [get]
func (a *API) me(w http.ResponseWriter, r *http.Request) {
	if a.userStorage == nil {
		writeError(w, http.StatusServiceUnavailable, "User storage not available", nil, a.logger)
		return
	}

	username, ok := GetUsername(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required", nil, a.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), core.DBOperationTimeout)
	defer cancel()

	user, err := a.userStorage.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Account no longer exists", nil, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load user", err, a.logger)
		return
	}

	a.respondJSON(w, user.Public(), http.StatusOK)
}
