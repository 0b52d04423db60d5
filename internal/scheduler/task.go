package scheduler

import (
	"github.com/google/uuid"

	"github.com/aristath/llmorch/internal/promptmodel"
)

// TaskStatus represents the current state of a task.
type TaskStatus int

const (
	TaskPending   TaskStatus = iota // waiting for dependencies
	TaskEligible                    // all dependencies resolved, ready to run
	TaskRunning                     // currently executing
	TaskCompleted                   // finished successfully
	TaskFailed                      // finished with error, or blocked by a failed dependency
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskEligible:
		return "eligible"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DependencyFailedError marks a task that was never run because an upstream
// dependency failed.
type DependencyFailedError struct {
	UpstreamID string
}

func (e *DependencyFailedError) Error() string {
	return "scheduler: dependency " + e.UpstreamID + " failed"
}

// Task is a unit of work in the DAG: a Prompt addressed to an agent, its
// upstream dependencies, and the bookkeeping needed to retry it under a
// caller-driven budget (the executor never retries implicitly).
type Task struct {
	ID        string
	AgentID   string // key into Workflow.Agents
	Prompt    *promptmodel.Prompt
	DependsOn []string

	Status TaskStatus
	// Result holds the agent's response on success. It is declared as any,
	// not *agentcore.ChatResponse, so this package does not depend on
	// internal/agentcore (which itself depends on *Task for ExecuteTask);
	// callers type-assert it back to *agentcore.ChatResponse.
	Result any
	Err    error

	RetryCount int
	MaxRetries int
}

// NewTaskID returns a time-ordered UUIDv7 task identifier. DAG ordering and
// log correlation benefit from IDs that sort the way they were created;
// UUIDv4 (the teacher's prior choice for session IDs) does not have that
// property.
func NewTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func cloneTask(task *Task) *Task {
	if task == nil {
		return nil
	}
	cp := *task
	if task.DependsOn != nil {
		cp.DependsOn = append([]string(nil), task.DependsOn...)
	}
	return &cp
}
