package workflow

import (
	"fmt"
	"time"
)

// CancelledError marks a task that never ran, or was interrupted mid-call,
// because the workflow's context was cancelled (spec.md §4.G Cancellation).
type CancelledError struct{}

func (e *CancelledError) Error() string { return "workflow: cancelled" }

// TimeoutError marks a task whose per-call timeout — drawn from its
// prompt's effective model_settings.timeout — elapsed before the provider
// responded (spec.md §5 Timeouts).
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("workflow: timed out after %s", e.Duration)
}
