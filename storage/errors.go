package storage

import "errors"

// Storage error constants
var (
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a user whose username is taken
	ErrUserExists = errors.New("user already exists")

	// ErrTaskNotFound is returned when a task is not found (or belongs to another owner)
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidCredentials is returned when password verification fails
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound is a generic "not found" error
	ErrNotFound = errors.New("not found")
)
