// Package storage provides the SQLite-backed persistence layer.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite holds the SQLite database connections.
// Separate read and write pools leverage WAL mode's concurrent read capability:
// WAL supports many concurrent readers but only a single writer.
type SQLite struct {
	DB      *sql.DB // Write connection pool (same as WriteDB, kept for call-site brevity)
	WriteDB *sql.DB // Write-only pool (MaxOpenConns=1 for the WAL single writer)
	ReadDB  *sql.DB // Read-only pool for concurrent reads
	Path    string
	Logger  *zap.SugaredLogger
}

// configureSQLiteConnection applies the standard connection settings:
// WAL journal, foreign keys, busy timeout.
func configureSQLiteConnection(db *sql.DB, dbPath string) error {
	// Connection string params don't apply PRAGMAs reliably; set them explicitly.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite disables foreign keys by default
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to verify foreign keys: %w", err)
	}
	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys not enabled (got: %d)", fkEnabled)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// In-memory databases report "memory" journal mode, not "wal"
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to query journal mode: %w", err)
	}
	if dbPath != ":memory:" && journalMode != "wal" {
		return fmt.Errorf("WAL mode not enabled (got: %s)", journalMode)
	}

	return nil
}

// NewSQLite opens the database, configures both pools, and ensures the schema exists.
func NewSQLite(dbPath string, logger *zap.SugaredLogger) (*SQLite, error) {
	if err := validateDatabasePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// In-memory databases need shared cache so both pools see the same data
	actualPath := dbPath
	if dbPath == ":memory:" {
		actualPath = "file::memory:?cache=shared"
	}

	writeDB, err := sql.Open("sqlite", actualPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite write pool: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(0)
	if err := configureSQLiteConnection(writeDB, dbPath); err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to configure write pool: %w", err)
	}

	readDB, err := sql.Open("sqlite", actualPath)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to open SQLite read pool: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(0)
	if err := configureSQLiteConnection(readDB, dbPath); err != nil {
		writeDB.Close()
		readDB.Close()
		return nil, fmt.Errorf("failed to configure read pool: %w", err)
	}

	s := &SQLite{
		DB:      writeDB,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Path:    dbPath,
		Logger:  logger,
	}

	if err := s.createTables(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Infow("SQLite storage ready", "path", dbPath)
	return s, nil
}

// createTables ensures all schema objects exist. Idempotent.
func (s *SQLite) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username      TEXT PRIMARY KEY,
			email         TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			active        INTEGER NOT NULL DEFAULT 1,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			owner       TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'pending',
			priority    TEXT NOT NULL DEFAULT 'medium',
			due_date    TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner_status ON tasks(owner, status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.WriteDB.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// WithTransaction runs fn inside a write transaction, rolling back on error.
func (s *SQLite) WithTransaction(fn func(*sql.Tx) error) error {
	tx, err := s.WriteDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.Logger.Errorw("Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// HealthCheck verifies both pools can reach the database.
func (s *SQLite) HealthCheck() error {
	if err := s.WriteDB.Ping(); err != nil {
		return fmt.Errorf("write pool unhealthy: %w", err)
	}
	if err := s.ReadDB.Ping(); err != nil {
		return fmt.Errorf("read pool unhealthy: %w", err)
	}
	return nil
}

// Close closes both connection pools.
func (s *SQLite) Close() error {
	var firstErr error
	if s.WriteDB != nil {
		if err := s.WriteDB.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close write pool: %w", err)
		}
	}
	if s.ReadDB != nil {
		if err := s.ReadDB.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close read pool: %w", err)
		}
	}
	return firstErr
}

// validateDatabasePath rejects paths that escape the working tree or point
// at suspicious locations. ":memory:" is always allowed for tests.
func validateDatabasePath(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if dbPath == ":memory:" {
		return nil
	}
	if strings.Contains(dbPath, "..") {
		return fmt.Errorf("database path must not contain '..'")
	}
	return nil
}

// FormatTime renders timestamps the way the schema stores them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTime reads timestamps written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
