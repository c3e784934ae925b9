// Package core contains the domain types shared by the API and storage layers.
package core

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Task statuses
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// Task priorities
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

var taskValidator = validator.New()

// Task represents a single todo item owned by a user.
type Task struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Status      string     `json:"status" validate:"required,oneof=pending in_progress completed"`
	Priority    string     `json:"priority" validate:"required,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ApplyDefaults fills the fields a caller may omit on creation.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
}

// Validate checks the task against the field constraints above.
func (t *Task) Validate() error {
	if err := taskValidator.Struct(t); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	return nil
}

// TaskFilters narrows task listings. Zero values mean "no filter".
type TaskFilters struct {
	Status   string
	Priority string
	Limit    int
	Offset   int
}

// Normalize clamps pagination to sane bounds.
func (f *TaskFilters) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultTaskPageSize
	}
	if f.Limit > MaxTaskPageSize {
		f.Limit = MaxTaskPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
