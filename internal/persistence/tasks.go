package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aristath/llmorch/internal/promptmodel"
	"github.com/aristath/llmorch/internal/scheduler"
)

// SaveTask saves or updates a task and its dependencies. Uses ON CONFLICT
// to make saves idempotent, so a workflow executor can checkpoint after
// every state transition without tracking whether this is the first write.
func (s *SQLiteStore) SaveTask(ctx context.Context, workflowID string, task *scheduler.Task) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	promptJSON, err := task.Prompt.Save()
	if err != nil {
		return fmt.Errorf("failed to serialize task prompt: %w", err)
	}

	resultJSON, err := marshalResult(task.Result)
	if err != nil {
		return fmt.Errorf("failed to serialize task result: %w", err)
	}

	errorStr := ""
	if task.Err != nil {
		errorStr = task.Err.Error()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (id, workflow_id, agent_id, prompt, status, result, error, retry_count, max_retries, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			agent_id = excluded.agent_id,
			prompt = excluded.prompt,
			status = excluded.status,
			result = excluded.result,
			error = excluded.error,
			retry_count = excluded.retry_count,
			max_retries = excluded.max_retries,
			updated_at = CURRENT_TIMESTAMP
	`, task.ID, workflowID, task.AgentID, promptJSON, task.Status, resultJSON, errorStr, task.RetryCount, task.MaxRetries)
	if err != nil {
		return fmt.Errorf("failed to upsert task: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, task.ID); err != nil {
		return fmt.Errorf("failed to delete old dependencies: %w", err)
	}

	for _, depID := range task.DependsOn {
		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, depID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("foreign key constraint failed: dependency task %s does not exist", depID)
		}
		if err != nil {
			return fmt.Errorf("failed to check dependency existence: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_dependencies (task_id, depends_on_id)
			VALUES (?, ?)
		`, task.ID, depID); err != nil {
			return fmt.Errorf("failed to insert dependency %s -> %s: %w", task.ID, depID, err)
		}
	}

	return tx.Commit()
}

// GetTask retrieves a task by ID, including its dependencies. Result comes
// back as json.RawMessage rather than the concrete type it held before
// checkpointing, since the store has no way to know what that type was;
// callers that round-trip through the store must decode it themselves.
func (s *SQLiteStore) GetTask(ctx context.Context, taskID string) (*scheduler.Task, error) {
	task := &scheduler.Task{ID: taskID}
	var promptJSON string
	var resultJSON, errorStr sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT agent_id, prompt, status, result, error, retry_count, max_retries
		FROM tasks
		WHERE id = ?
	`, taskID).Scan(&task.AgentID, &promptJSON, &task.Status, &resultJSON, &errorStr, &task.RetryCount, &task.MaxRetries)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}

	prompt, err := promptmodel.Load([]byte(promptJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize task prompt: %w", err)
	}
	task.Prompt = prompt

	if resultJSON.Valid && resultJSON.String != "" {
		task.Result = json.RawMessage(resultJSON.String)
	}
	if errorStr.Valid && errorStr.String != "" {
		task.Err = fmt.Errorf("%s", errorStr.String)
	}

	deps, err := s.taskDependencies(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.DependsOn = deps

	return task, nil
}

// UpdateTaskStatus updates the status, result, and error of a task without
// touching its prompt or dependency edges.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, taskID string, status scheduler.TaskStatus, result []byte, taskErr error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	errorStr := ""
	if taskErr != nil {
		errorStr = taskErr.Error()
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, result = ?, error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, string(result), errorStr, taskID)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %s", taskID)
	}

	return tx.Commit()
}

// ListTasks returns all tasks belonging to a workflow, including their
// dependencies, ordered by creation time.
func (s *SQLiteStore) ListTasks(ctx context.Context, workflowID string) ([]*scheduler.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, prompt, status, result, error, retry_count, max_retries
		FROM tasks
		WHERE workflow_id = ?
		ORDER BY created_at
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*scheduler.Task
	for rows.Next() {
		task := &scheduler.Task{}
		var promptJSON string
		var resultJSON, errorStr sql.NullString

		if err := rows.Scan(&task.ID, &task.AgentID, &promptJSON, &task.Status, &resultJSON, &errorStr, &task.RetryCount, &task.MaxRetries); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		prompt, err := promptmodel.Load([]byte(promptJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize task %s prompt: %w", task.ID, err)
		}
		task.Prompt = prompt

		if resultJSON.Valid && resultJSON.String != "" {
			task.Result = json.RawMessage(resultJSON.String)
		}
		if errorStr.Valid && errorStr.String != "" {
			task.Err = fmt.Errorf("%s", errorStr.String)
		}

		deps, err := s.taskDependencies(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		task.DependsOn = deps

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

func (s *SQLiteStore) taskDependencies(ctx context.Context, taskID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT depends_on_id
		FROM task_dependencies
		WHERE task_id = ?
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies for task %s: %w", taskID, err)
	}
	defer rows.Close()

	deps := []string{}
	for rows.Next() {
		var depID string
		if err := rows.Scan(&depID); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		deps = append(deps, depID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}
	return deps, nil
}

func marshalResult(result any) (string, error) {
	if result == nil {
		return "", nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
