package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/taskwise-ai/assistant-platform/internal/middleware"
	"github.com/taskwise-ai/assistant-platform/internal/model"
	"github.com/taskwise-ai/assistant-platform/internal/store"
	"github.com/taskwise-ai/assistant-platform/pkg/logger"
	"github.com/taskwise-ai/assistant-platform/pkg/metrics"
)

// TaskEventPublisher receives task mutation events. May be nil.
type TaskEventPublisher interface {
	PublishTaskEvent(ctx context.Context, event *model.TaskEvent) error
}

// TaskHandler handles task CRUD endpoints.
type TaskHandler struct {
	tasks  *store.TaskStore
	events TaskEventPublisher
	logger *logger.Logger
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(tasks *store.TaskStore, events TaskEventPublisher, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		events: events,
		logger: log,
	}
}

// List handles GET /api/v1/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	tasks, err := h.tasks.ListByOwner(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list tasks", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// Create handles POST /api/v1/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.CreateTaskRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "title is required (1-255 chars), description up to 1000 chars")
		return
	}

	task, err := h.tasks.Create(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		h.logger.Error("failed to create task", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create task")
		return
	}

	h.recordMutation(r.Context(), task, "created")
	writeJSON(w, http.StatusCreated, task)
}

// Update handles PUT /api/v1/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid task ID format")
		return
	}

	var req model.UpdateTaskRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid task update payload")
		return
	}

	task, err := h.tasks.Update(r.Context(), userID, taskID, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "task not found")
			return
		}
		h.logger.Error("failed to update task", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to update task")
		return
	}

	h.recordMutation(r.Context(), task, "updated")
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/v1/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid task ID format")
		return
	}

	if err := h.tasks.Delete(r.Context(), userID, taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "task not found")
			return
		}
		h.logger.Error("failed to delete task", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete task")
		return
	}

	h.recordMutation(r.Context(), &model.Task{ID: taskID, UserID: userID}, "deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// Toggle handles PATCH /api/v1/tasks/{id}/toggle
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid task ID format")
		return
	}

	task, err := h.tasks.Toggle(r.Context(), userID, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "task not found")
			return
		}
		h.logger.Error("failed to toggle task", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to toggle task")
		return
	}

	h.recordMutation(r.Context(), task, "toggled")
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) recordMutation(ctx context.Context, task *model.Task, operation string) {
	metrics.TasksTotal.WithLabelValues(operation, "api").Inc()

	if h.events == nil {
		return
	}
	event := &model.TaskEvent{
		TaskID:    task.ID,
		UserID:    task.UserID,
		Operation: operation,
		CreatedAt: time.Now(),
	}
	if err := h.events.PublishTaskEvent(ctx, event); err != nil {
		h.logger.Warn("failed to publish task event", zap.Error(err))
	}
}
