package events

import (
	"time"

	"github.com/aristath/llmorch/internal/promptmodel"
)

// Event is the shape spec.md §3 requires of every observable state change:
// an identity (TaskID, WorkflowID), a monotonic ordering (Seq, alongside the
// wall-clock Timestamp/UpdatedAt), and a payload specific to the event type.
type Event interface {
	EventType() string
	TaskID() string
	WorkflowID() string
	Seq() int64
	Timestamp() time.Time
	UpdatedAt() time.Time
}

// Topic constants.
const (
	TopicTask     = "task"
	TopicWorkflow = "workflow"
)

// Event type constants.
const (
	EventTypeTaskStarted      = "task.started"
	EventTypeTaskCompleted    = "task.completed"
	EventTypeTaskFailed       = "task.failed"
	EventTypeWorkflowProgress = "workflow.progress"
)

// Details carries the payload common to task-level events: the prompt as
// submitted, the raw provider response body, how long the call took, and
// the error if any (spec.md §3: "details" must carry enough to reconstruct
// what was sent and what came back).
type Details struct {
	PromptSnapshot *promptmodel.Prompt
	Raw            []byte
	Duration       time.Duration
	Err            error
}

// base carries the fields shared by every Event implementation.
type base struct {
	taskID     string
	workflowID string
	seq        int64
	timestamp  time.Time
	updatedAt  time.Time
}

func (b base) TaskID() string       { return b.taskID }
func (b base) WorkflowID() string   { return b.workflowID }
func (b base) Seq() int64           { return b.seq }
func (b base) Timestamp() time.Time { return b.timestamp }
func (b base) UpdatedAt() time.Time { return b.updatedAt }

// TaskStartedEvent is published when a task begins execution.
type TaskStartedEvent struct {
	base
	AgentID string
}

func NewTaskStartedEvent(seq int64, workflowID, taskID, agentID string, at time.Time) TaskStartedEvent {
	return TaskStartedEvent{
		base:    base{taskID: taskID, workflowID: workflowID, seq: seq, timestamp: at, updatedAt: at},
		AgentID: agentID,
	}
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }

// TaskCompletedEvent is published when a task completes successfully.
type TaskCompletedEvent struct {
	base
	Details Details
}

func NewTaskCompletedEvent(seq int64, workflowID, taskID string, details Details, at time.Time) TaskCompletedEvent {
	return TaskCompletedEvent{
		base:    base{taskID: taskID, workflowID: workflowID, seq: seq, timestamp: at, updatedAt: at},
		Details: details,
	}
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }

// TaskFailedEvent is published when a task fails, whether from its own
// execution error or a cascaded DependencyFailedError.
type TaskFailedEvent struct {
	base
	Details Details
}

func NewTaskFailedEvent(seq int64, workflowID, taskID string, details Details, at time.Time) TaskFailedEvent {
	return TaskFailedEvent{
		base:    base{taskID: taskID, workflowID: workflowID, seq: seq, timestamp: at, updatedAt: at},
		Details: details,
	}
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }

// WorkflowProgressEvent is published after each dispatch wave completes.
type WorkflowProgressEvent struct {
	base
	Total     int
	Completed int
	Running   int
	Failed    int
	Pending   int
}

func NewWorkflowProgressEvent(seq int64, workflowID string, total, completed, running, failed, pending int, at time.Time) WorkflowProgressEvent {
	return WorkflowProgressEvent{
		base:      base{workflowID: workflowID, seq: seq, timestamp: at, updatedAt: at},
		Total:     total,
		Completed: completed,
		Running:   running,
		Failed:    failed,
		Pending:   pending,
	}
}

func (e WorkflowProgressEvent) EventType() string { return EventTypeWorkflowProgress }
