package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/taskwise-ai/assistant-platform/internal/model"
)

// TaskStore persists tasks.
type TaskStore struct {
	db *sqlx.DB
}

// NewTaskStore creates a new task store.
func NewTaskStore(db *sqlx.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Create inserts a new task owned by ownerID.
func (s *TaskStore) Create(ctx context.Context, ownerID int64, title, description string) (*model.Task, error) {
	const query = `
		INSERT INTO tasks (user_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, title, description, completed, created_at, updated_at`

	var task model.Task
	err := s.db.GetContext(ctx, &task, query, ownerID, title, description)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return &task, nil
}

// GetByID looks up a task by ID regardless of owner. Callers that enforce
// ownership compare Task.UserID themselves.
func (s *TaskStore) GetByID(ctx context.Context, taskID int64) (*model.Task, error) {
	const query = `
		SELECT id, user_id, title, description, completed, created_at, updated_at
		FROM tasks
		WHERE id = $1`

	var task model.Task
	err := s.db.GetContext(ctx, &task, query, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return &task, nil
}

// ListByOwner returns all tasks owned by ownerID, oldest first.
func (s *TaskStore) ListByOwner(ctx context.Context, ownerID int64) ([]model.Task, error) {
	const query = `
		SELECT id, user_id, title, description, completed, created_at, updated_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at, id`

	tasks := []model.Task{}
	err := s.db.SelectContext(ctx, &tasks, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

// Update applies only the provided fields to a task owned by ownerID.
func (s *TaskStore) Update(ctx context.Context, ownerID, taskID int64, upd model.UpdateTaskRequest) (*model.Task, error) {
	const query = `
		UPDATE tasks
		SET title       = COALESCE($3, title),
		    description = COALESCE($4, description),
		    completed   = COALESCE($5, completed),
		    updated_at  = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, description, completed, created_at, updated_at`

	var task model.Task
	err := s.db.GetContext(ctx, &task, query, taskID, ownerID, upd.Title, upd.Description, upd.Completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	return &task, nil
}

// SetCompleted sets the completion flag on a task owned by ownerID.
func (s *TaskStore) SetCompleted(ctx context.Context, ownerID, taskID int64, completed bool) (*model.Task, error) {
	const query = `
		UPDATE tasks
		SET completed = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, description, completed, created_at, updated_at`

	var task model.Task
	err := s.db.GetContext(ctx, &task, query, taskID, ownerID, completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set task completed: %w", err)
	}

	return &task, nil
}

// Toggle flips the completion flag on a task owned by ownerID.
func (s *TaskStore) Toggle(ctx context.Context, ownerID, taskID int64) (*model.Task, error) {
	const query = `
		UPDATE tasks
		SET completed = NOT completed, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, description, completed, created_at, updated_at`

	var task model.Task
	err := s.db.GetContext(ctx, &task, query, taskID, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("toggle task: %w", err)
	}

	return &task, nil
}

// Delete removes a task owned by ownerID.
func (s *TaskStore) Delete(ctx context.Context, ownerID, taskID int64) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	res, err := s.db.ExecContext(ctx, query, taskID, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}
