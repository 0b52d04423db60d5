package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aristath/llmorch/internal/events"
	"github.com/aristath/llmorch/internal/promptmodel"
	"github.com/aristath/llmorch/internal/scheduler"
)

// testStore creates an in-memory store for testing and registers cleanup.
func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewMemoryStore(context.Background())
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func testPrompt(t *testing.T, text string) *promptmodel.Prompt {
	t.Helper()
	p, err := promptmodel.FromText("gpt-4o", promptmodel.ProviderOpenAI, text)
	if err != nil {
		t.Fatalf("FromText() error = %v", err)
	}
	return p
}

func TestSaveAndGetTask(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	dep1 := &scheduler.Task{ID: "dep-1", AgentID: "setup", Prompt: testPrompt(t, "setup"), Status: scheduler.TaskCompleted}
	dep2 := &scheduler.Task{ID: "dep-2", AgentID: "setup", Prompt: testPrompt(t, "setup 2"), Status: scheduler.TaskCompleted}
	if err := store.SaveTask(ctx, "wf-1", dep1); err != nil {
		t.Fatalf("failed to save dep1: %v", err)
	}
	if err := store.SaveTask(ctx, "wf-1", dep2); err != nil {
		t.Fatalf("failed to save dep2: %v", err)
	}

	task := &scheduler.Task{
		ID:         "task-1",
		AgentID:    "coder",
		Prompt:     testPrompt(t, "write code"),
		DependsOn:  []string{"dep-1", "dep-2"},
		Status:     scheduler.TaskPending,
		MaxRetries: 3,
	}
	if err := store.SaveTask(ctx, "wf-1", task); err != nil {
		t.Fatalf("failed to save task: %v", err)
	}

	retrieved, err := store.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}

	if retrieved.ID != task.ID {
		t.Errorf("ID mismatch: got %s, want %s", retrieved.ID, task.ID)
	}
	if retrieved.AgentID != task.AgentID {
		t.Errorf("AgentID mismatch: got %s, want %s", retrieved.AgentID, task.AgentID)
	}
	if retrieved.Prompt.Model() != task.Prompt.Model() {
		t.Errorf("Prompt model mismatch: got %s, want %s", retrieved.Prompt.Model(), task.Prompt.Model())
	}
	if retrieved.Status != task.Status {
		t.Errorf("Status mismatch: got %v, want %v", retrieved.Status, task.Status)
	}
	if retrieved.MaxRetries != task.MaxRetries {
		t.Errorf("MaxRetries mismatch: got %d, want %d", retrieved.MaxRetries, task.MaxRetries)
	}
	if len(retrieved.DependsOn) != len(task.DependsOn) {
		t.Fatalf("DependsOn length mismatch: got %d, want %d", len(retrieved.DependsOn), len(task.DependsOn))
	}
}

func TestSaveTaskIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	task := &scheduler.Task{ID: "task-idempotent", AgentID: "coder", Prompt: testPrompt(t, "idempotency"), Status: scheduler.TaskPending}
	if err := store.SaveTask(ctx, "wf-1", task); err != nil {
		t.Fatalf("failed to save task: %v", err)
	}

	task.Status = scheduler.TaskCompleted
	task.Result = map[string]any{"ok": true}

	if err := store.SaveTask(ctx, "wf-1", task); err != nil {
		t.Fatalf("failed to save task second time: %v", err)
	}

	retrieved, err := store.GetTask(ctx, "task-idempotent")
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if retrieved.Status != scheduler.TaskCompleted {
		t.Errorf("Status should be Completed after update, got %v", retrieved.Status)
	}
	raw, ok := retrieved.Result.(json.RawMessage)
	if !ok || !strings.Contains(string(raw), `"ok":true`) {
		t.Errorf("Result = %v, want json.RawMessage containing ok:true", retrieved.Result)
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	task := &scheduler.Task{ID: "task-status", AgentID: "coder", Prompt: testPrompt(t, "status updates"), Status: scheduler.TaskPending}
	if err := store.SaveTask(ctx, "wf-1", task); err != nil {
		t.Fatalf("failed to save task: %v", err)
	}

	if err := store.UpdateTaskStatus(ctx, "task-status", scheduler.TaskRunning, nil, nil); err != nil {
		t.Fatalf("failed to update to Running: %v", err)
	}
	retrieved, err := store.GetTask(ctx, "task-status")
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if retrieved.Status != scheduler.TaskRunning {
		t.Errorf("Status should be Running, got %v", retrieved.Status)
	}

	if err := store.UpdateTaskStatus(ctx, "task-status", scheduler.TaskCompleted, []byte(`{"text":"done"}`), nil); err != nil {
		t.Fatalf("failed to update to Completed: %v", err)
	}
	retrieved, err = store.GetTask(ctx, "task-status")
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if retrieved.Status != scheduler.TaskCompleted {
		t.Errorf("Status should be Completed, got %v", retrieved.Status)
	}
}

func TestUpdateTaskStatusNotFound(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	err := store.UpdateTaskStatus(ctx, "nonexistent", scheduler.TaskCompleted, nil, nil)
	if err == nil {
		t.Fatal("expected error when updating non-existent task, got nil")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected 'not found' error, got: %v", err)
	}
}

func TestListTasksScopedToWorkflow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	task1 := &scheduler.Task{ID: "list-task-1", AgentID: "setup", Prompt: testPrompt(t, "setup"), Status: scheduler.TaskCompleted}
	task2 := &scheduler.Task{ID: "list-task-2", AgentID: "coder", Prompt: testPrompt(t, "code"), Status: scheduler.TaskRunning, DependsOn: []string{"list-task-1"}}
	other := &scheduler.Task{ID: "other-task", AgentID: "coder", Prompt: testPrompt(t, "other workflow")}

	if err := store.SaveTask(ctx, "wf-1", task1); err != nil {
		t.Fatalf("failed to save task1: %v", err)
	}
	if err := store.SaveTask(ctx, "wf-1", task2); err != nil {
		t.Fatalf("failed to save task2: %v", err)
	}
	if err := store.SaveTask(ctx, "wf-2", other); err != nil {
		t.Fatalf("failed to save other: %v", err)
	}

	tasks, err := store.ListTasks(ctx, "wf-1")
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks in wf-1, got %d", len(tasks))
	}

	taskMap := make(map[string]*scheduler.Task)
	for _, task := range tasks {
		taskMap[task.ID] = task
	}
	if len(taskMap["list-task-2"].DependsOn) != 1 {
		t.Errorf("list-task-2 should have 1 dependency, got %d", len(taskMap["list-task-2"].DependsOn))
	}
}

func TestForeignKeyEnforced(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	task := &scheduler.Task{ID: "fk-task", AgentID: "coder", Prompt: testPrompt(t, "fk"), DependsOn: []string{"nonexistent-dep"}}

	err := store.SaveTask(ctx, "wf-1", task)
	if err == nil {
		t.Fatal("expected error when inserting dependency on non-existent task, got nil")
	}
}

func TestTaskErrorPersistence(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	task := &scheduler.Task{ID: "error-task", AgentID: "coder", Prompt: testPrompt(t, "error persistence")}
	if err := store.SaveTask(ctx, "wf-1", task); err != nil {
		t.Fatalf("failed to save task: %v", err)
	}

	testError := fmt.Errorf("task failed: file not found")
	if err := store.UpdateTaskStatus(ctx, "error-task", scheduler.TaskFailed, nil, testError); err != nil {
		t.Fatalf("failed to update task with error: %v", err)
	}

	retrieved, err := store.GetTask(ctx, "error-task")
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if retrieved.Err == nil || retrieved.Err.Error() != testError.Error() {
		t.Errorf("Err = %v, want %v", retrieved.Err, testError)
	}
	if retrieved.Status != scheduler.TaskFailed {
		t.Errorf("Status should be Failed, got %v", retrieved.Status)
	}
}

func TestSaveAndListEvents(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	started := events.NewTaskStartedEvent(1, "wf-1", "task-1", "coder", time.Now())
	completed := events.NewTaskCompletedEvent(2, "wf-1", "task-1", events.Details{Duration: 50 * time.Millisecond}, time.Now())
	progress := events.NewWorkflowProgressEvent(3, "wf-1", 2, 1, 0, 0, 1, time.Now())

	for _, e := range []events.Event{started, completed, progress} {
		if err := store.SaveEvent(ctx, "wf-1", e); err != nil {
			t.Fatalf("SaveEvent() error = %v", err)
		}
	}

	records, err := store.ListEvents(ctx, "wf-1")
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 events, got %d", len(records))
	}
	if records[0].EventType != events.EventTypeTaskStarted {
		t.Errorf("records[0].EventType = %q, want %q", records[0].EventType, events.EventTypeTaskStarted)
	}
	if records[0].Seq >= records[1].Seq || records[1].Seq >= records[2].Seq {
		t.Errorf("ListEvents did not return events in seq order: %+v", records)
	}
}

func TestSaveEventWithPromptSnapshot(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	details := events.Details{PromptSnapshot: testPrompt(t, "snapshot me"), Err: fmt.Errorf("boom")}
	failed := events.NewTaskFailedEvent(1, "wf-1", "task-1", details, time.Now())

	if err := store.SaveEvent(ctx, "wf-1", failed); err != nil {
		t.Fatalf("SaveEvent() error = %v", err)
	}

	records, err := store.ListEvents(ctx, "wf-1")
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 event, got %d", len(records))
	}
	if !strings.Contains(string(records[0].Payload), "snapshot me") {
		t.Errorf("payload does not carry the prompt snapshot: %s", records[0].Payload)
	}
	if !strings.Contains(string(records[0].Payload), "boom") {
		t.Errorf("payload does not carry the error message: %s", records[0].Payload)
	}
}
