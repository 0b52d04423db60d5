package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aristath/llmorch/internal/events"
)

// wireEvent is the on-disk JSON payload for a checkpointed events.Event.
// Only the fields relevant to the concrete event type are populated, mirroring
// the tagged-union wire encoding promptmodel uses for its own persistence.
type wireEvent struct {
	Timestamp string        `json:"timestamp"`
	UpdatedAt string        `json:"updated_at"`
	AgentID   string        `json:"agent_id,omitempty"`
	Details   *wireDetails  `json:"details,omitempty"`
	Progress  *wireProgress `json:"progress,omitempty"`
}

type wireDetails struct {
	PromptSnapshot json.RawMessage `json:"prompt_snapshot,omitempty"`
	Raw            []byte          `json:"raw,omitempty"`
	DurationNanos  int64           `json:"duration_nanos"`
	Err            string          `json:"error,omitempty"`
}

type wireProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Running   int `json:"running"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

func toWireDetails(d events.Details) (*wireDetails, error) {
	wd := &wireDetails{Raw: d.Raw, DurationNanos: int64(d.Duration)}
	if d.PromptSnapshot != nil {
		snap, err := d.PromptSnapshot.Save()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize event prompt snapshot: %w", err)
		}
		wd.PromptSnapshot = snap
	}
	if d.Err != nil {
		wd.Err = d.Err.Error()
	}
	return wd, nil
}

// SaveEvent appends an event to the workflow's checkpointed log. Seq is
// taken from the event itself (assigned by events.EventBus.NextSeq before
// publish), so the log preserves publish order even across restarts.
func (s *SQLiteStore) SaveEvent(ctx context.Context, workflowID string, event events.Event) error {
	w := wireEvent{
		Timestamp: event.Timestamp().Format(rfc3339Nano),
		UpdatedAt: event.UpdatedAt().Format(rfc3339Nano),
	}

	switch e := event.(type) {
	case events.TaskStartedEvent:
		w.AgentID = e.AgentID
	case events.TaskCompletedEvent:
		details, err := toWireDetails(e.Details)
		if err != nil {
			return err
		}
		w.Details = details
	case events.TaskFailedEvent:
		details, err := toWireDetails(e.Details)
		if err != nil {
			return err
		}
		w.Details = details
	case events.WorkflowProgressEvent:
		w.Progress = &wireProgress{
			Total:     e.Total,
			Completed: e.Completed,
			Running:   e.Running,
			Failed:    e.Failed,
			Pending:   e.Pending,
		}
	default:
		return fmt.Errorf("persistence: unknown event type %T", event)
	}

	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (seq, workflow_id, task_id, event_type, payload)
		VALUES (?, ?, ?, ?, ?)
	`, event.Seq(), workflowID, event.TaskID(), event.EventType(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// ListEvents returns every event checkpointed for a workflow, in publish
// order (Seq ascending). Payloads are returned raw; callers that need the
// original events.Event decode with the same event-type discriminator used
// in SaveEvent.
func (s *SQLiteStore) ListEvents(ctx context.Context, workflowID string) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, task_id, event_type, payload
		FROM events
		WHERE workflow_id = ?
		ORDER BY seq ASC
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	records := []EventRecord{}
	for rows.Next() {
		var rec EventRecord
		var taskID, payload string
		if err := rows.Scan(&rec.Seq, &taskID, &rec.EventType, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		rec.WorkflowID = workflowID
		rec.TaskID = taskID
		rec.Payload = []byte(payload)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return records, nil
}

const rfc3339Nano = "2006-01-02T15:04:05.999999999Z07:00"
