package storage

import (
	"context"

	"taskvault/core"
)

// UserStorage abstracts user persistence for the API and CLI layers.
type UserStorage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ValidateCredentials(ctx context.Context, username, password string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]*User, error)
}

// TaskStorage abstracts task persistence. Every operation is scoped to the
// owning username; a task belonging to someone else behaves as not found.
type TaskStorage interface {
	CreateTask(ctx context.Context, task *core.Task) error
	GetTask(ctx context.Context, owner, id string) (*core.Task, error)
	ListTasks(ctx context.Context, owner string, filters core.TaskFilters) ([]core.Task, error)
	CountTasks(ctx context.Context, owner string, filters core.TaskFilters) (int64, error)
	UpdateTask(ctx context.Context, task *core.Task) error
	DeleteTask(ctx context.Context, owner, id string) error
}

var (
	_ UserStorage = (*SQLiteUserStorage)(nil)
	_ TaskStorage = (*SQLiteTaskStorage)(nil)
)
