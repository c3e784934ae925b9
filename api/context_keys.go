package api

import "context"

// contextKey is a private type to prevent context key collisions across packages.
type contextKey string

// ContextKeyUsername stores the authenticated username (string)
const ContextKeyUsername contextKey = "username"

// GetUsername extracts the username from the context.
// Returns the username and true if found, empty string and false otherwise.
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(ContextKeyUsername).(string)
	return username, ok
}

// WithUsername creates a new context with the username value.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ContextKeyUsername, username)
}
