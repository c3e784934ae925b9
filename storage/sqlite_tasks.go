package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskvault/core"

	"go.uber.org/zap"
)

// SQLiteTaskStorage implements TaskStorage using SQLite
type SQLiteTaskStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteTaskStorage creates a new SQLite-based task storage
func NewSQLiteTaskStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteTaskStorage {
	return &SQLiteTaskStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

// CreateTask inserts a new task. ID, Owner and timestamps must be set by the
// caller before insert; timestamps are overwritten here.
func (sts *SQLiteTaskStorage) CreateTask(ctx context.Context, task *core.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	var dueDate interface{}
	if task.DueDate != nil {
		dueDate = FormatTime(*task.DueDate)
	}

	query := `
		INSERT INTO tasks (id, owner, title, description, status, priority, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sts.sqlite.WriteDB.ExecContext(ctx, query,
		task.ID,
		task.Owner,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		dueDate,
		FormatTime(task.CreatedAt),
		FormatTime(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetTask fetches a task by id, scoped to owner.
func (sts *SQLiteTaskStorage) GetTask(ctx context.Context, owner, id string) (*core.Task, error) {
	query := `
		SELECT id, owner, title, description, status, priority, due_date, created_at, updated_at
		FROM tasks WHERE id = ? AND owner = ?
	`

	row := sts.sqlite.ReadDB.QueryRowContext(ctx, query, id, owner)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasks returns the owner's tasks matching the filters, newest first.
func (sts *SQLiteTaskStorage) ListTasks(ctx context.Context, owner string, filters core.TaskFilters) ([]core.Task, error) {
	filters.Normalize()

	where, args := taskFilterClause(owner, filters)
	query := fmt.Sprintf(`
		SELECT id, owner, title, description, status, priority, due_date, created_at, updated_at
		FROM tasks %s
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, where)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := sts.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []core.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// CountTasks returns the number of tasks matching the filters, ignoring pagination.
func (sts *SQLiteTaskStorage) CountTasks(ctx context.Context, owner string, filters core.TaskFilters) (int64, error) {
	where, args := taskFilterClause(owner, filters)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tasks %s`, where)

	var count int64
	if err := sts.sqlite.ReadDB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// UpdateTask rewrites the mutable fields of a task, scoped to owner.
func (sts *SQLiteTaskStorage) UpdateTask(ctx context.Context, task *core.Task) error {
	task.UpdatedAt = time.Now().UTC()

	var dueDate interface{}
	if task.DueDate != nil {
		dueDate = FormatTime(*task.DueDate)
	}

	query := `
		UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, updated_at = ?
		WHERE id = ? AND owner = ?
	`

	res, err := sts.sqlite.WriteDB.ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		dueDate,
		FormatTime(task.UpdatedAt),
		task.ID,
		task.Owner,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task, scoped to owner.
func (sts *SQLiteTaskStorage) DeleteTask(ctx context.Context, owner, id string) error {
	res, err := sts.sqlite.WriteDB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// taskFilterClause builds the WHERE clause shared by ListTasks and CountTasks.
func taskFilterClause(owner string, filters core.TaskFilters) (string, []interface{}) {
	clauses := []string{"owner = ?"}
	args := []interface{}{owner}

	if filters.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filters.Status)
	}
	if filters.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, filters.Priority)
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanTask(row rowScanner) (*core.Task, error) {
	var task core.Task
	var dueDate sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&task.ID, &task.Owner, &task.Title, &task.Description,
		&task.Status, &task.Priority, &dueDate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		due, err := ParseTime(dueDate.String)
		if err != nil {
			return nil, fmt.Errorf("bad due_date for task %s: %w", task.ID, err)
		}
		task.DueDate = &due
	}
	if task.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for task %s: %w", task.ID, err)
	}
	if task.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at for task %s: %w", task.ID, err)
	}
	return &task, nil
}
