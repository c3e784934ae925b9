package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"taskvault/core"
	"taskvault/metrics"
	"taskvault/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// taskBodyLimit bounds task request bodies.
const taskBodyLimit = 64 * 1024

// taskRequest is the JSON payload accepted by create and update.
type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// taskListResponse wraps list results with pagination metadata.
type taskListResponse struct {
	Tasks  []core.Task `json:"tasks"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// requireTaskAccess resolves the authenticated owner and checks the storage
// layer is up. Returns false after writing the error response.
func (a *API) requireTaskAccess(w http.ResponseWriter, r *http.Request) (string, bool) {
	if a.taskStorage == nil {
		writeError(w, http.StatusServiceUnavailable, "Task storage not available", nil, a.logger)
		return "", false
	}
	username, ok := GetUsername(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required", nil, a.logger)
		return "", false
	}
	return username, true
}

// createTask godoc
//
//	@Summary		Create task
//	@Description	Creates a task owned by the authenticated user
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	core.Task
//	@Failure		400	{string}	string	"Bad Request"
//	@Failure		401	{string}	string	"Unauthorized"
//	@Failure		503	{string}	string	"Service Unavailable"
//	@Router			/api/tasks [post]
func (a *API) createTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := a.requireTaskAccess(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if err := decodeJSONBody(w, r, &req, taskBodyLimit); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body", err, a.logger)
		return
	}

	task := &core.Task{
		ID:          uuid.NewString(),
		Owner:       owner,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}
	task.ApplyDefaults()

	if err := task.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), core.DBOperationTimeout)
	defer cancel()

	if err := a.taskStorage.CreateTask(ctx, task); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create task", err, a.logger)
		return
	}

	metrics.TaskOperations.WithLabelValues("create").Inc()
	a.respondJSON(w, task, http.StatusCreated)
}

// listTasks godoc
//
//	@Summary		List tasks
//	@Description	Returns the authenticated user's tasks, newest first
//	@Tags			tasks
//	@Produce		json
//	@Param			status		query	string	false	"Filter by status"		Enums(pending, in_progress, completed)
//	@Param			priority	query	string	false	"Filter by priority"	Enums(low, medium, high)
//	@Param			limit		query	int		false	"Page size (1-200)"
//	@Param			offset		query	int		false	"Page offset"
//	@Success		200	{object}	taskListResponse
//	@Failure		400	{string}	string	"Bad Request"
//	@Failure		401	{string}	string	"Unauthorized"
//	@Failure		503	{string}	string	"Service Unavailable"
//	@Router			/api/tasks [get]
func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
	owner, ok := a.requireTaskAccess(w, r)
	if !ok {
		return
	}

	filters, err := parseTaskFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), core.DBOperationTimeout)
	defer cancel()

	tasks, err := a.taskStorage.ListTasks(ctx, owner, filters)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tasks", err, a.logger)
		return
	}

	total, err := a.taskStorage.CountTasks(ctx, owner, filters)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count tasks", err, a.logger)
		return
	}

	metrics.TaskOperations.WithLabelValues("list").Inc()
	a.respondJSON(w, taskListResponse{
		Tasks:  tasks,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, http.StatusOK)
}

// getTask godoc
//
//	@Summary		Get task
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path	string	true	"Task ID"
//	@Success		200	{object}	core.Task
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/api/tasks/{id} [get]
func (a *API) getTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := a.requireTaskAccess(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task ID", nil, a.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), core.DBOperationTimeout)
	defer cancel()

	task, err := a.taskStorage.GetTask(ctx, owner, id)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "Task not found", nil, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get task", err, a.logger)
		return
	}

	a.respondJSON(w, task, http.StatusOK)
}

// updateTask godoc
//
//	@Summary		Update task
//	@Description	Replaces the mutable fields of a task
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			id	path	string	true	"Task ID"
//	@Success		200	{object}	core.Task
//	@Failure		400	{string}	string	"Bad Request"
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/api/tasks/{id} [put]
func (a *API) updateTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := a.requireTaskAccess(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task ID", nil, a.logger)
		return
	}

	var req taskRequest
	if err := decodeJSONBody(w, r, &req, taskBodyLimit); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body", err, a.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), core.DBOperationTimeout)
	defer cancel()

	task, err := a.taskStorage.GetTask(ctx, owner, id)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "Task not found", nil, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get task", err, a.logger)
		return
	}

	task.Title = req.Title
	task.Description = req.Description
	task.Status = req.Status
	task.Priority = req.Priority
	task.DueDate = req.DueDate
	task.ApplyDefaults()

	if err := task.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	if err := a.taskStorage.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "Task not found", nil, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update task", err, a.logger)
		return
	}

	metrics.TaskOperations.WithLabelValues("update").Inc()
	a.respondJSON(w, task, http.StatusOK)
}

// deleteTask godoc
//
//	@Summary		Delete task
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path	string	true	"Task ID"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/api/tasks/{id} [delete]
func (a *API) deleteTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := a.requireTaskAccess(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task ID", nil, a.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), core.DBOperationTimeout)
	defer cancel()

	if err := a.taskStorage.DeleteTask(ctx, owner, id); err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "Task not found", nil, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete task", err, a.logger)
		return
	}

	metrics.TaskOperations.WithLabelValues("delete").Inc()
	a.respondJSON(w, map[string]string{"status": "deleted"}, http.StatusOK)
}

// parseTaskFilters reads the list query parameters, rejecting unknown enum values.
func parseTaskFilters(r *http.Request) (core.TaskFilters, error) {
	var filters core.TaskFilters

	if status := r.URL.Query().Get("status"); status != "" {
		switch status {
		case core.TaskStatusPending, core.TaskStatusInProgress, core.TaskStatusCompleted:
			filters.Status = status
		default:
			return filters, errors.New("invalid status filter")
		}
	}

	if priority := r.URL.Query().Get("priority"); priority != "" {
		switch priority {
		case core.TaskPriorityLow, core.TaskPriorityMedium, core.TaskPriorityHigh:
			filters.Priority = priority
		default:
			return filters, errors.New("invalid priority filter")
		}
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > core.MaxTaskPageSize {
			return filters, errors.New("limit must be an integer between 1 and 200")
		}
		filters.Limit = parsed
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			return filters, errors.New("offset must be a non-negative integer")
		}
		filters.Offset = parsed
	}

	filters.Normalize()
	return filters, nil
}
