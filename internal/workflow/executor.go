package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/llmorch/internal/agentcore"
	"github.com/aristath/llmorch/internal/events"
	"github.com/aristath/llmorch/internal/persistence"
	"github.com/aristath/llmorch/internal/promptmodel"
	"github.com/aristath/llmorch/internal/scheduler"
)

// globalContextBindName is the placeholder name spec.md §4.G step 2 seeds
// into every task's prompt before the first dispatch wave.
const globalContextBindName = "global_context"

// defaultConcurrencyPerProvider is spec.md §5's default bound on
// simultaneous outbound calls to a single provider.
const defaultConcurrencyPerProvider = 8

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithStore attaches a persistence.Store so every task/event transition is
// checkpointed as Run progresses. The default (no option) leaves the store
// nil, which Run treats as a no-op — checkpointing is strictly optional.
func WithStore(store persistence.Store) ExecutorOption {
	return func(e *Executor) { e.store = store }
}

// WithConcurrencyPerProvider overrides the default bound of 8 simultaneous
// calls to a single provider (spec.md §5, sourced in practice from
// config.TransportConfig.ConcurrencyPerProvider).
func WithConcurrencyPerProvider(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.concurrencyPerProvider = n
		}
	}
}

// Executor drives a Workflow's DAG to completion: seeding context,
// dispatching each ready task to its agent with bounded per-provider
// concurrency, and recording the outcome of each.
type Executor struct {
	workflow               *Workflow
	bus                    *events.EventBus
	store                  persistence.Store
	concurrencyPerProvider int
}

// NewExecutor builds an Executor for wf. bus receives every event Run
// publishes; it must not be nil.
func NewExecutor(wf *Workflow, bus *events.EventBus, opts ...ExecutorOption) *Executor {
	e := &Executor{
		workflow:               wf,
		bus:                    bus,
		concurrencyPerProvider: defaultConcurrencyPerProvider,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WorkflowResult is returned by Run: the terminal state of every task, and
// the chronologically ordered event log (spec.md §4.G step 4).
type WorkflowResult struct {
	WorkflowID string
	Tasks      map[string]*scheduler.Task
	Events     []events.Event
}

// Run implements spec.md §4.G's run(global_context?): validate the DAG,
// seed-bind global_context into every task's prompt, then repeatedly
// compute the ready set, dispatch it concurrently (bounded per provider),
// and record outcomes until every task is terminal.
func (e *Executor) Run(ctx context.Context, globalContext any) (*WorkflowResult, error) {
	dag := e.workflow.DAG

	if _, err := dag.Validate(); err != nil {
		return nil, fmt.Errorf("workflow: invalid DAG: %w", err)
	}

	var logMu sync.Mutex
	var log []events.Event
	emit := func(topic string, ev events.Event) {
		logMu.Lock()
		log = append(log, ev)
		logMu.Unlock()
		e.bus.Publish(topic, ev)
		if e.store != nil {
			_ = e.store.SaveEvent(ctx, e.workflow.ID, ev)
		}
	}

	if globalContext != nil {
		if err := e.seedGlobalContext(dag, globalContext); err != nil {
			return nil, err
		}
	}

	for {
		if ctx.Err() != nil {
			e.failRemaining(dag, emit)
			break
		}

		ready := dag.Eligible()
		if len(ready) == 0 {
			break
		}

		e.rebindPredecessorOutputs(dag, ready)

		now := time.Now()
		for _, task := range ready {
			if err := dag.MarkRunning(task.ID); err != nil {
				continue
			}
			emit(events.TopicTask, events.NewTaskStartedEvent(e.bus.NextSeq(), e.workflow.ID, task.ID, task.AgentID, now))
		}

		e.dispatchWave(ctx, ready, emit)

		if e.store != nil {
			for _, task := range ready {
				if t, ok := dag.Get(task.ID); ok {
					_ = e.store.SaveTask(ctx, e.workflow.ID, t)
				}
			}
		}

		e.emitProgress(dag, emit)
	}

	return &WorkflowResult{
		WorkflowID: e.workflow.ID,
		Tasks:      e.terminalTasks(dag),
		Events:     log,
	}, nil
}

// seedGlobalContext implements spec.md §4.G step 2: every task's stored
// prompt is replaced with an immutable bind of globalContext, whether or
// not the task is eligible yet.
func (e *Executor) seedGlobalContext(dag *scheduler.DAG, globalContext any) error {
	for _, task := range dag.Tasks() {
		if task.Prompt == nil {
			continue
		}
		bound := task.Prompt.Bind(globalContextBindName, globalContext)
		if err := dag.RebindPrompt(task.ID, bound); err != nil {
			return fmt.Errorf("workflow: seeding global context into %q: %w", task.ID, err)
		}
	}
	return nil
}

// rebindPredecessorOutputs implements spec.md §4.G step 3's injection: for
// every task about to be dispatched, each already-completed dependency's
// textual output is bound under the dependency's own task id. When a
// dependency's result decodes as a JSON object, its top-level scalar
// fields are also bound as "${depID.field}" (SPEC_FULL §12.1's parameter
// context, best-effort — decode failure just skips the extra binds).
func (e *Executor) rebindPredecessorOutputs(dag *scheduler.DAG, ready []*scheduler.Task) {
	for _, task := range ready {
		if task.Prompt == nil || len(task.DependsOn) == 0 {
			continue
		}
		prompt := task.Prompt
		rebound := false
		for _, depID := range task.DependsOn {
			dep, ok := dag.Get(depID)
			if !ok || dep.Status != scheduler.TaskCompleted {
				continue
			}
			prompt = prompt.Bind(depID, resultText(dep.Result))
			rebound = true
			for field, value := range structuredFields(dep.Result) {
				prompt = prompt.Bind(depID+"."+field, value)
			}
		}
		if rebound {
			_ = dag.RebindPrompt(task.ID, prompt)
			task.Prompt = prompt
		}
	}
}

// dispatchWave runs every task in ready concurrently, grouped by the
// provider its agent talks to, with each provider's group bounded to
// e.concurrencyPerProvider in-flight calls (spec.md §5).
func (e *Executor) dispatchWave(ctx context.Context, ready []*scheduler.Task, emit func(string, events.Event)) {
	groups := make(map[string][]*scheduler.Task)
	for _, task := range ready {
		provider := ""
		if agent, ok := e.workflow.Agents[task.AgentID]; ok {
			provider = agent.Provider
		}
		groups[provider] = append(groups[provider], task)
	}

	var wg sync.WaitGroup
	for _, tasks := range groups {
		tasks := tasks
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(e.concurrencyPerProvider)
			for _, task := range tasks {
				task := task
				g.Go(func() error {
					e.dispatch(gctx, task, emit)
					return nil
				})
			}
			_ = g.Wait()
		}()
	}
	wg.Wait()
}

// dispatch executes a single task against its agent and records the
// outcome on the DAG plus a TaskCompleted/TaskFailed event.
func (e *Executor) dispatch(ctx context.Context, task *scheduler.Task, emit func(string, events.Event)) {
	dag := e.workflow.DAG

	agent, ok := e.workflow.Agents[task.AgentID]
	if !ok {
		e.recordFailure(dag, task, fmt.Errorf("workflow: no agent registered for id %q", task.AgentID), nil, 0, emit)
		return
	}

	var opts []agentcore.ExecOption
	if outputType, ok := e.workflow.OutputTypes[task.AgentID]; ok && outputType != nil {
		opts = append(opts, agentcore.WithOutputType(outputType))
	}

	callCtx := ctx
	if timeout := effectiveTimeout(task.Prompt); timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := agent.ExecuteTask(callCtx, task, opts...)
	duration := time.Since(start)

	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = &CancelledError{}
		case callCtx.Err() == context.DeadlineExceeded:
			err = &TimeoutError{Duration: duration}
		}
		e.recordFailure(dag, task, err, task.Prompt, duration, emit)
		return
	}

	if err := dag.MarkCompleted(task.ID, resp); err != nil {
		return
	}
	emit(events.TopicTask, events.NewTaskCompletedEvent(e.bus.NextSeq(), e.workflow.ID, task.ID, events.Details{
		PromptSnapshot: task.Prompt,
		Duration:       duration,
	}, time.Now()))
}

func (e *Executor) recordFailure(dag *scheduler.DAG, task *scheduler.Task, err error, prompt *promptmodel.Prompt, duration time.Duration, emit func(string, events.Event)) {
	_ = dag.MarkFailed(task.ID, err)
	emit(events.TopicTask, events.NewTaskFailedEvent(e.bus.NextSeq(), e.workflow.ID, task.ID, events.Details{
		PromptSnapshot: prompt,
		Duration:       duration,
		Err:            err,
	}, time.Now()))
}

// failRemaining transitions every still-Pending task to Failed with
// CancelledError, implementing spec.md §4.G's cancellation clause: running
// tasks finish on their own (handled by dispatch observing ctx), pending
// ones never start.
func (e *Executor) failRemaining(dag *scheduler.DAG, emit func(string, events.Event)) {
	for _, snapshot := range dag.Tasks() {
		current, ok := dag.Get(snapshot.ID)
		if !ok || current.Status != scheduler.TaskPending {
			continue
		}
		err := &CancelledError{}
		_ = dag.MarkFailed(current.ID, err)
		emit(events.TopicTask, events.NewTaskFailedEvent(e.bus.NextSeq(), e.workflow.ID, current.ID, events.Details{Err: err}, time.Now()))
	}
}

func (e *Executor) emitProgress(dag *scheduler.DAG, emit func(string, events.Event)) {
	var total, completed, running, failed, pending int
	for _, t := range dag.Tasks() {
		total++
		switch t.Status {
		case scheduler.TaskCompleted:
			completed++
		case scheduler.TaskRunning:
			running++
		case scheduler.TaskFailed:
			failed++
		default:
			pending++
		}
	}
	emit(events.TopicWorkflow, events.NewWorkflowProgressEvent(e.bus.NextSeq(), e.workflow.ID, total, completed, running, failed, pending, time.Now()))
}

func (e *Executor) terminalTasks(dag *scheduler.DAG) map[string]*scheduler.Task {
	tasks := make(map[string]*scheduler.Task, len(dag.Tasks()))
	for _, t := range dag.Tasks() {
		tasks[t.ID] = t
	}
	return tasks
}

// resultText extracts the textual output of a completed task's result for
// use as a predecessor bind value.
func resultText(result any) string {
	if resp, ok := result.(*agentcore.ChatResponse); ok {
		return resp.Text()
	}
	return fmt.Sprintf("%v", result)
}

// structuredFields decodes result's text as a JSON object and returns its
// top-level scalar fields, for the "${depID.field}" binds of SPEC_FULL
// §12.1. Nested objects/arrays and decode failures are silently skipped —
// this is best-effort enrichment, not a required invariant.
func structuredFields(result any) map[string]any {
	resp, ok := result.(*agentcore.ChatResponse)
	if !ok {
		return nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(resp.Text()), &decoded); err != nil {
		return nil
	}
	fields := make(map[string]any, len(decoded))
	for k, v := range decoded {
		switch v.(type) {
		case map[string]any, []any:
			continue
		default:
			fields[k] = v
		}
	}
	return fields
}

// effectiveTimeout returns the per-call timeout drawn from p's
// provider-specific model settings, or 0 if unset (spec.md §5 Timeouts).
func effectiveTimeout(p *promptmodel.Prompt) time.Duration {
	if p == nil {
		return 0
	}
	settings := p.Settings()
	switch settings.Tag() {
	case promptmodel.ProviderOpenAI:
		if settings.OpenAI != nil && settings.OpenAI.Timeout > 0 {
			return time.Duration(settings.OpenAI.Timeout) * time.Second
		}
	case promptmodel.ProviderGemini:
		if settings.Gemini != nil && settings.Gemini.Timeout > 0 {
			return time.Duration(settings.Gemini.Timeout) * time.Second
		}
	case promptmodel.ProviderAnthropic:
		if settings.Anthropic != nil && settings.Anthropic.Timeout > 0 {
			return time.Duration(settings.Anthropic.Timeout) * time.Second
		}
	}
	return 0
}
