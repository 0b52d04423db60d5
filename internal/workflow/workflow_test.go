package workflow

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aristath/llmorch/internal/agentcore"
	"github.com/aristath/llmorch/internal/events"
	"github.com/aristath/llmorch/internal/promptmodel"
	"github.com/aristath/llmorch/internal/scheduler"
	"github.com/aristath/llmorch/internal/transport"
)

// scriptedClient is a transport.Client test double that picks a canned
// OpenAI response by matching a substring against the outgoing request
// body, recording every request it sees.
type scriptedClient struct {
	mu        sync.Mutex
	responses []scriptedResponse
	requests  [][]byte
	delay     time.Duration
}

type scriptedResponse struct {
	match string
	body  string
	err   error
}

func (c *scriptedClient) EndpointFor(provider, model string) (string, error) {
	return "https://example.invalid/" + provider, nil
}

func (c *scriptedClient) CredentialsFor(provider string) (transport.Credentials, error) {
	return transport.Credentials{Header: "Authorization", Value: "Bearer test"}, nil
}

func (c *scriptedClient) Execute(ctx context.Context, provider, endpoint string, req []byte, headers http.Header) (int, []byte, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		}
	}

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	for _, r := range c.responses {
		if strings.Contains(string(req), r.match) {
			if r.err != nil {
				return 0, nil, r.err
			}
			return 200, []byte(r.body), nil
		}
	}
	return 0, nil, &transportNoMatchError{body: string(req)}
}

type transportNoMatchError struct{ body string }

func (e *transportNoMatchError) Error() string { return "scriptedClient: no matching response for request" }

// scriptedFailure is the canned error a scriptedResponse entry returns to
// simulate a provider-side failure.
type scriptedFailure struct{}

func (e *scriptedFailure) Error() string { return "scriptedClient: scripted failure" }

func okResponse(content string) string {
	return `{"id":"chatcmpl-x","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"` + content + `"},"finish_reason":"stop"}]}`
}

func newTestAgent(t *testing.T, id string, client transport.Client) *agentcore.Agent {
	t.Helper()
	return agentcore.NewAgent(id, "openai", nil, client)
}

func mustPrompt(t *testing.T, text string) *promptmodel.Prompt {
	t.Helper()
	p, err := promptmodel.FromText("gpt-4o", promptmodel.ProviderOpenAI, text)
	if err != nil {
		t.Fatalf("FromText() error = %v", err)
	}
	return p
}

func TestRun_TwoIndependentTasks(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{match: "write fileA", body: okResponse("Created fileA")},
		{match: "write fileB", body: okResponse("Created fileB")},
	}}
	agent := newTestAgent(t, "coder", client)

	dag := scheduler.NewDAG()
	if err := dag.AddTask(&scheduler.Task{ID: "task-a", AgentID: "coder", Prompt: mustPrompt(t, "write fileA"), Status: scheduler.TaskPending}); err != nil {
		t.Fatalf("AddTask(a): %v", err)
	}
	if err := dag.AddTask(&scheduler.Task{ID: "task-b", AgentID: "coder", Prompt: mustPrompt(t, "write fileB"), Status: scheduler.TaskPending}); err != nil {
		t.Fatalf("AddTask(b): %v", err)
	}

	wf := NewWorkflow("two-independent", map[string]*agentcore.Agent{"coder": agent}, dag)
	bus := events.NewEventBus()
	defer bus.Close()

	result, err := NewExecutor(wf, bus).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Tasks) != 2 {
		t.Fatalf("expected 2 tasks in result, got %d", len(result.Tasks))
	}
	for id, task := range result.Tasks {
		if task.Status != scheduler.TaskCompleted {
			t.Errorf("task %q status = %v, want Completed", id, task.Status)
		}
	}
}

func TestRun_DependentTaskReceivesPredecessorBind(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{match: "produce the draft", body: okResponse("draft content v1")},
		{match: "review", body: okResponse("looks good")},
	}}
	agent := newTestAgent(t, "coder", client)

	dag := scheduler.NewDAG()
	if err := dag.AddTask(&scheduler.Task{ID: "draft", AgentID: "coder", Prompt: mustPrompt(t, "produce the draft"), Status: scheduler.TaskPending}); err != nil {
		t.Fatalf("AddTask(draft): %v", err)
	}
	if err := dag.AddTask(&scheduler.Task{
		ID: "review", AgentID: "coder",
		Prompt:    mustPrompt(t, "review this: ${draft}"),
		DependsOn: []string{"draft"},
		Status:    scheduler.TaskPending,
	}); err != nil {
		t.Fatalf("AddTask(review): %v", err)
	}

	wf := NewWorkflow("draft-review", map[string]*agentcore.Agent{"coder": agent}, dag)
	bus := events.NewEventBus()
	defer bus.Close()

	result, err := NewExecutor(wf, bus).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for id, task := range result.Tasks {
		if task.Status != scheduler.TaskCompleted {
			t.Errorf("task %q status = %v, want Completed", id, task.Status)
		}
	}

	var sawBoundRequest bool
	client.mu.Lock()
	for _, req := range client.requests {
		if strings.Contains(string(req), "review this: draft content v1") {
			sawBoundRequest = true
		}
	}
	client.mu.Unlock()
	if !sawBoundRequest {
		t.Error("expected review task's request to contain the draft task's bound output")
	}
}

func TestRun_GlobalContextSeeding(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{match: "topic: widgets", body: okResponse("done")},
	}}
	agent := newTestAgent(t, "coder", client)

	dag := scheduler.NewDAG()
	if err := dag.AddTask(&scheduler.Task{ID: "task", AgentID: "coder", Prompt: mustPrompt(t, "topic: ${global_context}"), Status: scheduler.TaskPending}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	wf := NewWorkflow("seeded", map[string]*agentcore.Agent{"coder": agent}, dag)
	bus := events.NewEventBus()
	defer bus.Close()

	_, err := NewExecutor(wf, bus).Run(context.Background(), "widgets")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(client.requests))
	}
	if !strings.Contains(string(client.requests[0]), "topic: widgets") {
		t.Errorf("request did not contain the seeded global context: %s", client.requests[0])
	}
}

func TestRun_FailurePropagatesToDependents(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{match: "will fail", err: &scriptedFailure{}},
	}}
	agent := newTestAgent(t, "coder", client)

	dag := scheduler.NewDAG()
	if err := dag.AddTask(&scheduler.Task{ID: "a", AgentID: "coder", Prompt: mustPrompt(t, "will fail"), Status: scheduler.TaskPending}); err != nil {
		t.Fatalf("AddTask(a): %v", err)
	}
	if err := dag.AddTask(&scheduler.Task{ID: "b", AgentID: "coder", Prompt: mustPrompt(t, "depends on a"), DependsOn: []string{"a"}, Status: scheduler.TaskPending}); err != nil {
		t.Fatalf("AddTask(b): %v", err)
	}

	wf := NewWorkflow("fail-propagate", map[string]*agentcore.Agent{"coder": agent}, dag)
	bus := events.NewEventBus()
	defer bus.Close()

	result, err := NewExecutor(wf, bus).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Tasks["a"].Status != scheduler.TaskFailed {
		t.Errorf("task a status = %v, want Failed", result.Tasks["a"].Status)
	}
	if result.Tasks["b"].Status != scheduler.TaskFailed {
		t.Errorf("task b status = %v, want Failed", result.Tasks["b"].Status)
	}
	if _, ok := result.Tasks["b"].Err.(*scheduler.DependencyFailedError); !ok {
		t.Errorf("task b error = %v (%T), want *DependencyFailedError", result.Tasks["b"].Err, result.Tasks["b"].Err)
	}
}

func TestRun_EmitsEventsInOrder(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{match: "solo", body: okResponse("solo done")},
	}}
	agent := newTestAgent(t, "coder", client)

	dag := scheduler.NewDAG()
	if err := dag.AddTask(&scheduler.Task{ID: "solo", AgentID: "coder", Prompt: mustPrompt(t, "solo"), Status: scheduler.TaskPending}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	wf := NewWorkflow("ordered", map[string]*agentcore.Agent{"coder": agent}, dag)
	bus := events.NewEventBus()
	defer bus.Close()

	result, err := NewExecutor(wf, bus).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Events) < 3 {
		t.Fatalf("expected at least 3 events (started, completed, progress), got %d", len(result.Events))
	}
	if result.Events[0].EventType() != events.EventTypeTaskStarted {
		t.Errorf("first event = %s, want %s", result.Events[0].EventType(), events.EventTypeTaskStarted)
	}

	var sawStarted, sawCompletedAfterStarted bool
	for _, ev := range result.Events {
		if ev.EventType() == events.EventTypeTaskStarted {
			sawStarted = true
		}
		if ev.EventType() == events.EventTypeTaskCompleted && sawStarted {
			sawCompletedAfterStarted = true
		}
	}
	if !sawCompletedAfterStarted {
		t.Error("TaskCompleted did not strictly follow TaskStarted in the event log")
	}

	for i := 1; i < len(result.Events); i++ {
		if result.Events[i].Seq() <= result.Events[i-1].Seq() {
			t.Errorf("event seq not strictly increasing at index %d: %d <= %d", i, result.Events[i].Seq(), result.Events[i-1].Seq())
		}
	}
}

func TestRun_CancellationFailsPendingTasks(t *testing.T) {
	client := &scriptedClient{
		delay: 200 * time.Millisecond,
		responses: []scriptedResponse{
			{match: "slow", body: okResponse("done")},
		},
	}
	agent := newTestAgent(t, "coder", client)

	dag := scheduler.NewDAG()
	if err := dag.AddTask(&scheduler.Task{ID: "slow", AgentID: "coder", Prompt: mustPrompt(t, "slow"), Status: scheduler.TaskPending}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	wf := NewWorkflow("cancelled", map[string]*agentcore.Agent{"coder": agent}, dag)
	bus := events.NewEventBus()
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := NewExecutor(wf, bus).Run(ctx, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Tasks["slow"].Status != scheduler.TaskFailed {
		t.Errorf("task status = %v, want Failed", result.Tasks["slow"].Status)
	}
}

func TestResetFailed_RetryBudget(t *testing.T) {
	dag := scheduler.NewDAG()
	if err := dag.AddTask(&scheduler.Task{ID: "t", AgentID: "coder", Prompt: mustPrompt(t, "x"), Status: scheduler.TaskFailed, MaxRetries: 1}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	wf := NewWorkflow("retry", map[string]*agentcore.Agent{}, dag)

	if err := wf.ResetFailed("t"); err != nil {
		t.Fatalf("first ResetFailed() error = %v", err)
	}
	task, _ := dag.Get("t")
	if task.Status != scheduler.TaskPending {
		t.Errorf("status = %v, want Pending", task.Status)
	}
	if task.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", task.RetryCount)
	}

	if err := dag.MarkFailed("t", nil); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := wf.ResetFailed("t"); err != ErrMaxRetriesExceeded {
		t.Errorf("second ResetFailed() error = %v, want ErrMaxRetriesExceeded", err)
	}
}

func TestIsComplete(t *testing.T) {
	dag := scheduler.NewDAG()
	if err := dag.AddTask(&scheduler.Task{ID: "a", AgentID: "coder", Prompt: mustPrompt(t, "x"), Status: scheduler.TaskPending}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	wf := NewWorkflow("complete-check", map[string]*agentcore.Agent{}, dag)

	if wf.IsComplete() {
		t.Error("IsComplete() = true, want false while task is pending")
	}

	if err := dag.MarkCompleted("a", "done"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if !wf.IsComplete() {
		t.Error("IsComplete() = false, want true once every task is terminal")
	}
}
