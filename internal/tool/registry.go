// Package tool declares the fixed catalog of task operations callable by the
// language model and dispatches validated invocations to the task store.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/taskwise-ai/assistant-platform/internal/llm"
	"github.com/taskwise-ai/assistant-platform/internal/model"
	"github.com/taskwise-ai/assistant-platform/internal/store"
	"github.com/taskwise-ai/assistant-platform/pkg/metrics"
)

// TaskStore is the persistence contract the registry dispatches to.
type TaskStore interface {
	Create(ctx context.Context, ownerID int64, title, description string) (*model.Task, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Task, error)
	GetByID(ctx context.Context, taskID int64) (*model.Task, error)
	Update(ctx context.Context, ownerID, taskID int64, upd model.UpdateTaskRequest) (*model.Task, error)
	SetCompleted(ctx context.Context, ownerID, taskID int64, completed bool) (*model.Task, error)
	Delete(ctx context.Context, ownerID, taskID int64) error
}

// Result is the structured outcome of a tool invocation, serialized back to
// the model verbatim. Failures are results, not errors: a failed tool call
// must not abort the chat turn.
type Result map[string]any

func errorResult(message string) Result {
	return Result{"error": message, "status": "failed"}
}

// Failed reports whether the result carries a failure payload.
func (r Result) Failed() bool {
	_, ok := r["error"]
	return ok
}

type handlerFunc func(ctx context.Context, callerID int64, rawArgs string) Result

// Registry is the immutable tool catalog. It is constructed once at process
// start and passed by reference into the orchestrator.
type Registry struct {
	tasks    TaskStore
	schemas  []llm.ToolSchema
	handlers map[string]handlerFunc
}

// NewRegistry builds the registry over a task store.
func NewRegistry(tasks TaskStore) *Registry {
	r := &Registry{tasks: tasks}

	r.schemas = []llm.ToolSchema{
		{
			Name:        "add_task",
			Description: "Add a new task/todo for the user",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"title": {"type": "string", "description": "The title of the task"},
					"description": {"type": "string", "description": "Optional description of the task"}
				},
				"required": ["title"]
			}`),
		},
		{
			Name:        "list_tasks",
			Description: "List all tasks/todos for the user",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {}
			}`),
		},
		{
			Name:        "complete_task",
			Description: "Mark a task as completed",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"task_id": {"type": "string", "description": "The ID of the task to complete"}
				},
				"required": ["task_id"]
			}`),
		},
		{
			Name:        "delete_task",
			Description: "Delete a task",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"task_id": {"type": "string", "description": "The ID of the task to delete"}
				},
				"required": ["task_id"]
			}`),
		},
		{
			Name:        "update_task",
			Description: "Update a task's title, description, or completion status",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"task_id": {"type": "string", "description": "The ID of the task to update"},
					"title": {"type": "string", "description": "New title for the task"},
					"description": {"type": "string", "description": "New description for the task"},
					"completed": {"type": "boolean", "description": "New completion status"}
				},
				"required": ["task_id"]
			}`),
		},
	}

	r.handlers = map[string]handlerFunc{
		"add_task":      r.addTask,
		"list_tasks":    r.listTasks,
		"complete_task": r.completeTask,
		"delete_task":   r.deleteTask,
		"update_task":   r.updateTask,
	}

	return r
}

// Schemas returns the tool catalog as offered to the language model.
func (r *Registry) Schemas() []llm.ToolSchema {
	return r.schemas
}

// Invoke dispatches a named tool call. Arguments are model-emitted JSON text
// and are validated before dispatch; callerID is the authenticated caller
// established upstream, and any user identifier embedded in the arguments is
// ignored. Unexpected store failures are converted to error results so a
// malfunctioning call cannot corrupt the turn.
func (r *Registry) Invoke(ctx context.Context, name string, rawArgs string, callerID int64) Result {
	handler, ok := r.handlers[name]
	if !ok {
		metrics.RecordToolCall(name, "unknown")
		return errorResult("Unknown tool")
	}

	result := handler(ctx, callerID, rawArgs)
	if result.Failed() {
		metrics.RecordToolCall(name, "failed")
	} else {
		metrics.RecordToolCall(name, "ok")
	}

	return result
}

// taskID accepts both quoted and bare numeric JSON values, since the model
// emits either despite the declared string type.
type taskID int64

func (t *taskID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid task id %s", data)
		}
		s = n.String()
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", s)
	}
	*t = taskID(id)
	return nil
}

type addTaskArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (r *Registry) addTask(ctx context.Context, callerID int64, rawArgs string) Result {
	var args addTaskArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return errorResult("Invalid arguments")
	}
	if strings.TrimSpace(args.Title) == "" {
		return errorResult("Invalid arguments: title is required")
	}
	if len(args.Title) > model.TaskTitleMaxLen {
		return errorResult("Invalid arguments: title too long")
	}
	if len(args.Description) > model.TaskDescriptionMaxLen {
		return errorResult("Invalid arguments: description too long")
	}

	task, err := r.tasks.Create(ctx, callerID, args.Title, args.Description)
	if err != nil {
		return errorResult("Failed to create task")
	}

	return Result{
		"task_id": task.ID,
		"status":  "created",
		"title":   task.Title,
	}
}

func (r *Registry) listTasks(ctx context.Context, callerID int64, rawArgs string) Result {
	tasks, err := r.tasks.ListByOwner(ctx, callerID)
	if err != nil {
		return errorResult("Failed to list tasks")
	}

	out := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, map[string]any{
			"id":          task.ID,
			"title":       task.Title,
			"description": task.Description,
			"completed":   task.Completed,
		})
	}

	return Result{"tasks": out}
}

type taskIDArgs struct {
	TaskID *taskID `json:"task_id"`
}

// resolveOwned fetches a task and enforces ownership. The distinction
// between a missing task and someone else's task is reported to the model
// so it can phrase its reply, but neither leaks task contents.
func (r *Registry) resolveOwned(ctx context.Context, callerID, id int64) (*model.Task, Result) {
	task, err := r.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errorResult("Task not found")
		}
		return nil, errorResult("Failed to load task")
	}
	if task.UserID != callerID {
		return nil, errorResult("Unauthorized access to task")
	}
	return task, nil
}

func (r *Registry) completeTask(ctx context.Context, callerID int64, rawArgs string) Result {
	var args taskIDArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil || args.TaskID == nil {
		return errorResult("Invalid arguments: task_id is required")
	}

	if _, fail := r.resolveOwned(ctx, callerID, int64(*args.TaskID)); fail != nil {
		return fail
	}

	task, err := r.tasks.SetCompleted(ctx, callerID, int64(*args.TaskID), true)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errorResult("Task not found")
		}
		return errorResult("Failed to complete task")
	}

	return Result{
		"task_id": task.ID,
		"status":  "completed",
		"title":   task.Title,
	}
}

func (r *Registry) deleteTask(ctx context.Context, callerID int64, rawArgs string) Result {
	var args taskIDArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil || args.TaskID == nil {
		return errorResult("Invalid arguments: task_id is required")
	}

	task, fail := r.resolveOwned(ctx, callerID, int64(*args.TaskID))
	if fail != nil {
		return fail
	}

	if err := r.tasks.Delete(ctx, callerID, task.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errorResult("Task not found")
		}
		return errorResult("Failed to delete task")
	}

	return Result{
		"task_id": task.ID,
		"status":  "deleted",
		"title":   task.Title,
	}
}

type updateTaskArgs struct {
	TaskID      *taskID `json:"task_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func (r *Registry) updateTask(ctx context.Context, callerID int64, rawArgs string) Result {
	var args updateTaskArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil || args.TaskID == nil {
		return errorResult("Invalid arguments: task_id is required")
	}
	if args.Title != nil && strings.TrimSpace(*args.Title) == "" {
		return errorResult("Invalid arguments: title cannot be empty")
	}
	if args.Title != nil && len(*args.Title) > model.TaskTitleMaxLen {
		return errorResult("Invalid arguments: title too long")
	}
	if args.Description != nil && len(*args.Description) > model.TaskDescriptionMaxLen {
		return errorResult("Invalid arguments: description too long")
	}

	if _, fail := r.resolveOwned(ctx, callerID, int64(*args.TaskID)); fail != nil {
		return fail
	}

	task, err := r.tasks.Update(ctx, callerID, int64(*args.TaskID), model.UpdateTaskRequest{
		Title:       args.Title,
		Description: args.Description,
		Completed:   args.Completed,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errorResult("Task not found")
		}
		return errorResult("Failed to update task")
	}

	return Result{
		"task_id": task.ID,
		"status":  "updated",
		"title":   task.Title,
	}
}
