package scheduler

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gammazero/toposort"

	"github.com/aristath/llmorch/internal/promptmodel"
)

// DAG is a directed acyclic graph of Tasks: add tasks, validate for cycles,
// and drive them through Pending -> Running -> Completed/Failed.
type DAG struct {
	mu         sync.RWMutex
	tasks      map[string]*Task
	dependents map[string][]string // taskID -> tasks that depend on it
}

// NewDAG creates an empty DAG.
func NewDAG() *DAG {
	return &DAG{
		tasks:      make(map[string]*Task),
		dependents: make(map[string][]string),
	}
}

// AddTask adds a task to the DAG, assigning it a UUIDv7 ID if it has none.
// Returns an error if the task's ID already exists.
func (d *DAG) AddTask(task *Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if task.ID == "" {
		task.ID = NewTaskID()
	}
	if _, exists := d.tasks[task.ID]; exists {
		return fmt.Errorf("task with ID %q already exists", task.ID)
	}

	d.tasks[task.ID] = task
	for _, depID := range task.DependsOn {
		d.dependents[depID] = append(d.dependents[depID], task.ID)
	}
	return nil
}

// Validate runs a topological sort over the DAG, returning the task IDs in
// dependency order, or an error if a dependency references an unknown task
// or a cycle exists.
func (d *DAG) Validate() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.validateLocked()
}

func (d *DAG) validateLocked() ([]string, error) {
	for taskID, task := range d.tasks {
		for _, depID := range task.DependsOn {
			if _, exists := d.tasks[depID]; !exists {
				return nil, fmt.Errorf("task %q depends on non-existent task %q", taskID, depID)
			}
		}
	}

	var edges []toposort.Edge
	for taskID, task := range d.tasks {
		if len(task.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, taskID})
			continue
		}
		for _, depID := range task.DependsOn {
			edges = append(edges, toposort.Edge{depID, taskID})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("DAG contains cycle: %w", err)
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}

	if len(order) != len(d.tasks) {
		found := make(map[string]bool, len(order))
		for _, id := range order {
			found[id] = true
		}
		var missing []string
		for taskID := range d.tasks {
			if !found[taskID] {
				missing = append(missing, taskID)
			}
		}
		return nil, fmt.Errorf("topological sort lost %d tasks: %s", len(missing), strings.Join(missing, ", "))
	}
	return order, nil
}

// Plan returns the DAG's tasks grouped into layers: layer 0 holds tasks with
// no dependencies, layer N holds tasks whose longest dependency path has
// length N. Tasks within a layer have no dependency relationship between
// them and are safe to dispatch concurrently (spec.md §4.F execution plan).
func (d *DAG) Plan() ([][]*Task, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	order, err := d.validateLocked()
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(order))
	for _, id := range order {
		task := d.tasks[id]
		maxDep := -1
		for _, depID := range task.DependsOn {
			if depth[depID] > maxDep {
				maxDep = depth[depID]
			}
		}
		depth[id] = maxDep + 1
	}

	var layers [][]*Task
	for _, id := range order {
		layer := depth[id]
		for len(layers) <= layer {
			layers = append(layers, nil)
		}
		layers[layer] = append(layers[layer], cloneTask(d.tasks[id]))
	}
	return layers, nil
}

// Eligible returns all Pending tasks whose dependencies have all resolved
// (Completed). A dependency that is Failed propagates failure to its
// dependents rather than making them eligible; see propagateFailure.
func (d *DAG) Eligible() []*Task {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var eligible []*Task
	for _, task := range d.tasks {
		if task.Status != TaskPending {
			continue
		}
		allResolved := true
		for _, depID := range task.DependsOn {
			dep, exists := d.tasks[depID]
			if !exists || dep.Status != TaskCompleted {
				allResolved = false
				break
			}
		}
		if allResolved {
			eligible = append(eligible, cloneTask(task))
		}
	}
	return eligible
}

// MarkRunning transitions a task to Running.
func (d *DAG) MarkRunning(taskID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, exists := d.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}
	task.Status = TaskRunning
	return nil
}

// MarkCompleted transitions a task to Completed and records its result.
func (d *DAG) MarkCompleted(taskID string, result any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, exists := d.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}
	task.Status = TaskCompleted
	task.Result = result
	task.Err = nil
	return nil
}

// MarkFailed transitions a task to Failed, records err, and transitively
// fails every task that (directly or indirectly) depends on it with a
// DependencyFailedError — spec.md §4.F's single propagation rule, replacing
// the teacher's FailHard/FailSoft/FailSkip branching.
func (d *DAG) MarkFailed(taskID string, err error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, exists := d.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}
	task.Status = TaskFailed
	task.Err = err
	d.propagateFailure(taskID)
	return nil
}

func (d *DAG) propagateFailure(taskID string) {
	for _, depID := range d.dependents[taskID] {
		dep := d.tasks[depID]
		if dep == nil || dep.Status == TaskFailed {
			continue
		}
		dep.Status = TaskFailed
		dep.Err = &DependencyFailedError{UpstreamID: taskID}
		d.propagateFailure(depID)
	}
}

// Get returns a task by ID.
func (d *DAG) Get(taskID string) (*Task, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	task, exists := d.tasks[taskID]
	if !exists {
		return nil, false
	}
	return cloneTask(task), true
}

// Tasks returns all tasks in the DAG, in no particular order.
func (d *DAG) Tasks() []*Task {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tasks := make([]*Task, 0, len(d.tasks))
	for _, task := range d.tasks {
		tasks = append(tasks, cloneTask(task))
	}
	return tasks
}

// Order returns topologically sorted task IDs.
func (d *DAG) Order() ([]string, error) {
	return d.Validate()
}

// RebindPrompt replaces a task's Prompt in place, used by internal/workflow
// to seed global_context at the start of a run and to inject a predecessor's
// output as a named bind before a successor is dispatched (spec.md §4.G
// steps 2 and 3 — both rebinds are immutable at the Prompt level, but the
// DAG's stored pointer is swapped to the rebound copy).
func (d *DAG) RebindPrompt(taskID string, prompt *promptmodel.Prompt) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, exists := d.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}
	task.Prompt = prompt
	return nil
}

// IncrementRetry bumps a task's RetryCount and transitions it back to
// Pending. The retry-budget check (RetryCount vs MaxRetries) is the
// caller's responsibility (Workflow.ResetFailed) — this method only
// performs the bookkeeping once that check has passed.
func (d *DAG) IncrementRetry(taskID string) (retryCount int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, exists := d.tasks[taskID]
	if !exists {
		return 0, fmt.Errorf("task %q not found", taskID)
	}
	task.RetryCount++
	task.Status = TaskPending
	task.Err = nil
	return task.RetryCount, nil
}

// Reset transitions a Failed task back to Pending, for caller-driven retry.
// It does not touch tasks that were cascade-failed as its dependents; the
// caller is expected to re-add those or rely on Workflow.ResetFailed, which
// enforces the retry budget.
func (d *DAG) Reset(taskID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, exists := d.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}
	task.Status = TaskPending
	task.Err = nil
	return nil
}
