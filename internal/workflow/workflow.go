// Package workflow drives a scheduler.DAG to completion against a set of
// agents, implementing spec.md §4.G's run(global_context?) algorithm.
package workflow

import (
	"errors"
	"fmt"

	"github.com/aristath/llmorch/internal/agentcore"
	"github.com/aristath/llmorch/internal/scheduler"
)

// Workflow pairs a DAG of tasks with the agents that execute them.
type Workflow struct {
	ID   string
	Name string

	// Agents maps a Task.AgentID to the Agent that should execute it.
	Agents map[string]*agentcore.Agent
	DAG    *scheduler.DAG

	// OutputTypes maps an agent id to the Go value passed to
	// agentcore.WithOutputType for every task dispatched to that agent.
	// An agent absent from this map gets the provider's default text
	// response.
	OutputTypes map[string]any
}

// NewWorkflow builds a Workflow named name, backed by dag and agents. The
// workflow is assigned a time-ordered id, matching scheduler.Task's own
// id scheme, so workflow and task ids sort the same way in logs.
func NewWorkflow(name string, agents map[string]*agentcore.Agent, dag *scheduler.DAG) *Workflow {
	return &Workflow{
		ID:          scheduler.NewTaskID(),
		Name:        name,
		Agents:      agents,
		DAG:         dag,
		OutputTypes: make(map[string]any),
	}
}

// ErrMaxRetriesExceeded is returned by ResetFailed once a task's
// RetryCount has reached its MaxRetries.
var ErrMaxRetriesExceeded = errors.New("workflow: task exceeded max retries")

// ResetFailed re-queues a Failed task for another attempt. This is a
// caller-invoked operation — Run never retries a task implicitly (spec.md
// §5 Idempotence). It transitions the task back to Pending and increments
// RetryCount, or returns ErrMaxRetriesExceeded if the budget is spent.
func (w *Workflow) ResetFailed(taskID string) error {
	task, ok := w.DAG.Get(taskID)
	if !ok {
		return fmt.Errorf("workflow: task %q not found", taskID)
	}
	if task.Status != scheduler.TaskFailed {
		return fmt.Errorf("workflow: task %q is not failed (status %s)", taskID, task.Status)
	}
	if task.RetryCount >= task.MaxRetries {
		return ErrMaxRetriesExceeded
	}
	_, err := w.DAG.IncrementRetry(taskID)
	return err
}

// IsComplete reports whether every task has reached a terminal state
// (Completed or Failed).
func (w *Workflow) IsComplete() bool {
	for _, t := range w.DAG.Tasks() {
		if t.Status != scheduler.TaskCompleted && t.Status != scheduler.TaskFailed {
			return false
		}
	}
	return true
}
