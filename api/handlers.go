package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// respondJSON writes a JSON response with proper error handling
func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Errorw("Failed to encode JSON response",
			"error", err,
			"data_type", fmt.Sprintf("%T", data))
		// Response already started, can't send error to client
	}
}

// root godoc
//
//	@Summary		Service metadata
//	@Description	Returns health status, application metadata, and the active CORS origin list
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Router			/ [get]
func (a *API) root(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, map[string]interface{}{
		"status":       "healthy",
		"app_name":     a.config.App.Name,
		"version":      a.config.App.Version,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"cors_origins": a.config.API.AllowedOrigins,
	}, http.StatusOK)
}

// healthCheck godoc
//
//	@Summary		Health check
//	@Description	Returns the health status of the service
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	// Liveness only reflects the process serving requests; storage
	// availability is intentionally not probed here.
	a.respondJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}
