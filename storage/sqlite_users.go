package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SQLiteUserStorage implements UserStorage using SQLite
type SQLiteUserStorage struct {
	sqlite     *SQLite
	logger     *zap.SugaredLogger
	bcryptCost int
}

// NewSQLiteUserStorage creates a new SQLite-based user storage
func NewSQLiteUserStorage(sqlite *SQLite, bcryptCost int, logger *zap.SugaredLogger) *SQLiteUserStorage {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &SQLiteUserStorage{
		sqlite:     sqlite,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// CreateUser creates a new user, hashing the provided plaintext password.
func (sus *SQLiteUserStorage) CreateUser(ctx context.Context, user *User) error {
	existing, err := sus.GetUserByUsername(ctx, user.Username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), sus.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Active = true
	user.Password = string(hashedPassword)

	query := `
		INSERT INTO users (username, email, password_hash, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = sus.sqlite.WriteDB.ExecContext(ctx, query,
		user.Username,
		user.Email,
		user.Password,
		boolToInt(user.Active),
		FormatTime(user.CreatedAt),
		FormatTime(user.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	sus.logger.Infof("Created user %s", user.Username)
	return nil
}

// GetUserByUsername fetches a single user. Returns ErrUserNotFound if absent.
func (sus *SQLiteUserStorage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT username, email, password_hash, active, created_at, updated_at
		FROM users WHERE username = ?
	`

	row := sus.sqlite.ReadDB.QueryRowContext(ctx, query, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ValidateCredentials checks username/password against the stored hash.
func (sus *SQLiteUserStorage) ValidateCredentials(ctx context.Context, username, password string) (*User, error) {
	user, err := sus.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if !user.Active {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// UpdateUser persists mutable user fields (email, active). The password hash
// is rewritten only when Password no longer matches the stored value and
// parses as a plaintext replacement.
func (sus *SQLiteUserStorage) UpdateUser(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users SET email = ?, password_hash = ?, active = ?, updated_at = ?
		WHERE username = ?
	`

	res, err := sus.sqlite.WriteDB.ExecContext(ctx, query,
		user.Email,
		user.Password,
		boolToInt(user.Active),
		FormatTime(user.UpdatedAt),
		user.Username,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user; their tasks cascade via the schema.
func (sus *SQLiteUserStorage) DeleteUser(ctx context.Context, username string) error {
	res, err := sus.sqlite.WriteDB.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	sus.logger.Infof("Deleted user %s", username)
	return nil
}

// ListUsers returns all users ordered by creation time.
func (sus *SQLiteUserStorage) ListUsers(ctx context.Context) ([]*User, error) {
	query := `
		SELECT username, email, password_hash, active, created_at, updated_at
		FROM users ORDER BY created_at
	`

	rows, err := sus.sqlite.ReadDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var user User
	var active int
	var createdAt, updatedAt string

	if err := row.Scan(&user.Username, &user.Email, &user.Password, &active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	user.Active = active != 0

	var err error
	if user.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for user %s: %w", user.Username, err)
	}
	if user.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at for user %s: %w", user.Username, err)
	}
	return &user, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
