package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// usernamePattern limits usernames to characters safe for logs and storage.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// writeError writes an error response to the client and logs it.
// The client only ever sees the message, never the underlying error.
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	if logger != nil {
		if err != nil {
			logger.Errorw(message, "error", err.Error(), "status_code", statusCode)
		} else {
			logger.Errorw(message, "status_code", statusCode)
		}
	}
	http.Error(w, message, statusCode)
}

// decodeJSONBody decodes a size-limited JSON request body into dst,
// rejecting unknown fields and trailing content.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxBytes)
		}
		return fmt.Errorf("malformed JSON body: %w", err)
	}

	// A second decode succeeding means trailing garbage after the object
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// getRealIP returns the client IP, honoring X-Forwarded-For only when the
// deployment fronts the service with a trusted proxy.
func getRealIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			parts := strings.Split(fwd, ",")
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// validateUsername checks username shape before it reaches storage or logs.
func validateUsername(username string) error {
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters long")
	}
	if len(username) > 50 {
		return errors.New("username must be no more than 50 characters long")
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("username can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}
