package tool

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/taskwise-ai/assistant-platform/internal/model"
	"github.com/taskwise-ai/assistant-platform/internal/store"
)

// memTaskStore is an in-memory TaskStore for registry tests.
type memTaskStore struct {
	nextID int64
	tasks  map[int64]*model.Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{nextID: 1, tasks: map[int64]*model.Task{}}
}

func (m *memTaskStore) seed(ownerID int64, title string) *model.Task {
	task := &model.Task{ID: m.nextID, UserID: ownerID, Title: title}
	m.tasks[task.ID] = task
	m.nextID++
	return task
}

func (m *memTaskStore) Create(ctx context.Context, ownerID int64, title, description string) (*model.Task, error) {
	task := m.seed(ownerID, title)
	task.Description = description
	return task, nil
}

func (m *memTaskStore) ListByOwner(ctx context.Context, ownerID int64) ([]model.Task, error) {
	var out []model.Task
	for id := int64(1); id < m.nextID; id++ {
		if task, ok := m.tasks[id]; ok && task.UserID == ownerID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (m *memTaskStore) GetByID(ctx context.Context, taskID int64) (*model.Task, error) {
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return task, nil
}

func (m *memTaskStore) Update(ctx context.Context, ownerID, taskID int64, upd model.UpdateTaskRequest) (*model.Task, error) {
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	if upd.Title != nil {
		task.Title = *upd.Title
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.Completed != nil {
		task.Completed = *upd.Completed
	}
	return task, nil
}

func (m *memTaskStore) SetCompleted(ctx context.Context, ownerID, taskID int64, completed bool) (*model.Task, error) {
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	task.Completed = completed
	return task, nil
}

func (m *memTaskStore) Delete(ctx context.Context, ownerID, taskID int64) error {
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != ownerID {
		return store.ErrNotFound
	}
	delete(m.tasks, taskID)
	return nil
}

func TestInvokeAddTask(t *testing.T) {
	tasks := newMemTaskStore()
	r := NewRegistry(tasks)

	result := r.Invoke(context.Background(), "add_task", `{"title":"Buy milk","description":"2%"}`, 1)
	if result.Failed() {
		t.Fatalf("add_task failed: %v", result)
	}
	if result["status"] != "created" {
		t.Errorf("status = %v, want created", result["status"])
	}
	if result["title"] != "Buy milk" {
		t.Errorf("title = %v, want Buy milk", result["title"])
	}
	if result["task_id"] != int64(1) {
		t.Errorf("task_id = %v, want 1", result["task_id"])
	}
}

func TestInvokeAddTaskValidation(t *testing.T) {
	r := NewRegistry(newMemTaskStore())
	ctx := context.Background()

	tests := []struct {
		name string
		args string
	}{
		{name: "missing title", args: `{}`},
		{name: "blank title", args: `{"title":"   "}`},
		{name: "malformed json", args: `{"title":`},
		{name: "title too long", args: fmt.Sprintf(`{"title":%q}`, strings.Repeat("x", model.TaskTitleMaxLen+1))},
		{name: "description too long", args: fmt.Sprintf(`{"title":"ok","description":%q}`, strings.Repeat("x", model.TaskDescriptionMaxLen+1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Invoke(ctx, "add_task", tt.args, 1)
			if !result.Failed() {
				t.Errorf("expected failure result, got %v", result)
			}
			if result["status"] != "failed" {
				t.Errorf("status = %v, want failed", result["status"])
			}
		})
	}
}

func TestInvokeListTasks(t *testing.T) {
	tasks := newMemTaskStore()
	tasks.seed(1, "mine")
	tasks.seed(2, "theirs")
	tasks.seed(1, "also mine")
	r := NewRegistry(tasks)

	result := r.Invoke(context.Background(), "list_tasks", `{}`, 1)
	if result.Failed() {
		t.Fatalf("list_tasks failed: %v", result)
	}

	listed, ok := result["tasks"].([]map[string]any)
	if !ok {
		t.Fatalf("tasks payload has type %T", result["tasks"])
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d tasks, want 2", len(listed))
	}
	for _, entry := range listed {
		if entry["title"] == "theirs" {
			t.Error("another user's task leaked into the listing")
		}
	}
}

func TestInvokeCompleteTask(t *testing.T) {
	tasks := newMemTaskStore()
	seeded := tasks.seed(1, "finish report")
	r := NewRegistry(tasks)

	result := r.Invoke(context.Background(), "complete_task", `{"task_id":"1"}`, 1)
	if result.Failed() {
		t.Fatalf("complete_task failed: %v", result)
	}
	if result["status"] != "completed" {
		t.Errorf("status = %v, want completed", result["status"])
	}
	if !seeded.Completed {
		t.Error("task not marked completed in store")
	}
}

// Completing an already-completed task succeeds and reports the same outcome.
func TestInvokeCompleteTaskIdempotent(t *testing.T) {
	tasks := newMemTaskStore()
	seeded := tasks.seed(1, "finish report")
	seeded.Completed = true
	r := NewRegistry(tasks)

	result := r.Invoke(context.Background(), "complete_task", `{"task_id":"1"}`, 1)
	if result.Failed() {
		t.Fatalf("complete_task failed: %v", result)
	}
	if result["status"] != "completed" {
		t.Errorf("status = %v, want completed", result["status"])
	}
}

// The model sometimes emits task_id as a bare number despite the declared
// string type.
func TestInvokeAcceptsBareNumericTaskID(t *testing.T) {
	tasks := newMemTaskStore()
	tasks.seed(1, "finish report")
	r := NewRegistry(tasks)

	result := r.Invoke(context.Background(), "complete_task", `{"task_id":1}`, 1)
	if result.Failed() {
		t.Fatalf("complete_task with bare numeric id failed: %v", result)
	}
}

func TestInvokeRejectsMalformedTaskID(t *testing.T) {
	tasks := newMemTaskStore()
	tasks.seed(1, "finish report")
	r := NewRegistry(tasks)
	ctx := context.Background()

	for _, args := range []string{
		`{"task_id":"abc"}`,
		`{"task_id":true}`,
		`{"task_id":12.5}`,
		`{"task_id":null}`,
		`{"task_id":" 1"}`,
	} {
		result := r.Invoke(ctx, "complete_task", args, 1)
		if !result.Failed() {
			t.Errorf("args %s: expected failure result, got %v", args, result)
		}
	}
}

func TestInvokeDeleteTask(t *testing.T) {
	tasks := newMemTaskStore()
	tasks.seed(1, "old chore")
	r := NewRegistry(tasks)

	result := r.Invoke(context.Background(), "delete_task", `{"task_id":"1"}`, 1)
	if result.Failed() {
		t.Fatalf("delete_task failed: %v", result)
	}
	if result["status"] != "deleted" {
		t.Errorf("status = %v, want deleted", result["status"])
	}
	if result["title"] != "old chore" {
		t.Errorf("title = %v, want old chore", result["title"])
	}
	if _, ok := tasks.tasks[1]; ok {
		t.Error("task still present after delete")
	}
}

func TestInvokeUpdateTask(t *testing.T) {
	tasks := newMemTaskStore()
	seeded := tasks.seed(1, "draft")
	r := NewRegistry(tasks)

	result := r.Invoke(context.Background(), "update_task", `{"task_id":"1","title":"final","completed":true}`, 1)
	if result.Failed() {
		t.Fatalf("update_task failed: %v", result)
	}
	if result["status"] != "updated" {
		t.Errorf("status = %v, want updated", result["status"])
	}
	if seeded.Title != "final" || !seeded.Completed {
		t.Errorf("store not updated: title=%q completed=%v", seeded.Title, seeded.Completed)
	}
}

func TestInvokeOwnershipEnforced(t *testing.T) {
	tasks := newMemTaskStore()
	tasks.seed(2, "someone else's task")
	r := NewRegistry(tasks)
	ctx := context.Background()

	for _, name := range []string{"complete_task", "delete_task", "update_task"} {
		t.Run(name, func(t *testing.T) {
			result := r.Invoke(ctx, name, `{"task_id":"1"}`, 1)
			if !result.Failed() {
				t.Fatalf("expected failure result, got %v", result)
			}
			if result["error"] != "Unauthorized access to task" {
				t.Errorf("error = %v, want Unauthorized access to task", result["error"])
			}
		})
	}

	if task, ok := tasks.tasks[1]; !ok || task.Completed {
		t.Error("unauthorized call mutated the task")
	}
}

func TestInvokeMissingTask(t *testing.T) {
	r := NewRegistry(newMemTaskStore())
	ctx := context.Background()

	for _, name := range []string{"complete_task", "delete_task", "update_task"} {
		t.Run(name, func(t *testing.T) {
			result := r.Invoke(ctx, name, `{"task_id":"999"}`, 1)
			if result["error"] != "Task not found" {
				t.Errorf("error = %v, want Task not found", result["error"])
			}
		})
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	r := NewRegistry(newMemTaskStore())

	result := r.Invoke(context.Background(), "drop_database", `{}`, 1)
	if !result.Failed() {
		t.Fatalf("expected failure result, got %v", result)
	}
	if result["error"] != "Unknown tool" {
		t.Errorf("error = %v, want Unknown tool", result["error"])
	}
}

// A user_id embedded in model-emitted arguments is ignored; the authenticated
// caller always wins.
func TestInvokeIgnoresUserIDInArguments(t *testing.T) {
	tasks := newMemTaskStore()
	r := NewRegistry(tasks)

	result := r.Invoke(context.Background(), "add_task", `{"title":"sneaky","user_id":999}`, 1)
	if result.Failed() {
		t.Fatalf("add_task failed: %v", result)
	}
	if task := tasks.tasks[1]; task.UserID != 1 {
		t.Errorf("task owner = %d, want authenticated caller 1", task.UserID)
	}
}

func TestAddThenListRoundTrip(t *testing.T) {
	r := NewRegistry(newMemTaskStore())
	ctx := context.Background()

	created := r.Invoke(ctx, "add_task", `{"title":"water plants","description":"balcony"}`, 1)
	if created.Failed() {
		t.Fatalf("add_task failed: %v", created)
	}

	listed := r.Invoke(ctx, "list_tasks", `{}`, 1)
	entries, ok := listed["tasks"].([]map[string]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("tasks payload = %v", listed["tasks"])
	}
	entry := entries[0]
	if entry["title"] != "water plants" || entry["description"] != "balcony" {
		t.Errorf("listed task = %v", entry)
	}
	if entry["completed"] != false {
		t.Errorf("new task completed = %v, want false", entry["completed"])
	}
}

func TestSchemasCatalog(t *testing.T) {
	r := NewRegistry(newMemTaskStore())

	schemas := r.Schemas()
	want := map[string]bool{
		"add_task":      false,
		"list_tasks":    false,
		"complete_task": false,
		"delete_task":   false,
		"update_task":   false,
	}
	for _, s := range schemas {
		if _, ok := want[s.Name]; !ok {
			t.Errorf("unexpected tool %q in catalog", s.Name)
			continue
		}
		want[s.Name] = true
		if s.Description == "" {
			t.Errorf("tool %q has no description", s.Name)
		}
		if len(s.Parameters) == 0 {
			t.Errorf("tool %q has no parameter schema", s.Name)
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %q missing from catalog", name)
		}
	}
}
