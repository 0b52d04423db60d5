package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/llmorch/internal/agentcore"
	"github.com/aristath/llmorch/internal/config"
	"github.com/aristath/llmorch/internal/events"
	"github.com/aristath/llmorch/internal/promptmodel"
	"github.com/aristath/llmorch/internal/scheduler"
	"github.com/aristath/llmorch/internal/transport"
	"github.com/aristath/llmorch/internal/workflow"
)

// defaultModels fills in a model for any AgentConfig that doesn't name one.
var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"gemini":    "gemini-1.5-flash",
	"vertex":    "gemini-1.5-flash",
	"anthropic": "claude-3-5-haiku-20241022",
}

func main() {
	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	client := transport.NewHTTPClient(
		transport.WithTimeout(cfg.Transport.DefaultTimeout),
		transport.WithBreakerTuning(uint32(cfg.Transport.BreakerThreshold), cfg.Transport.BreakerCooldown),
	)

	agents, err := buildAgents(cfg, client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building agents: %v\n", err)
		os.Exit(1)
	}

	dag, err := buildDemoDAG(agents)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building workflow: %v\n", err)
		os.Exit(1)
	}

	bus := events.NewEventBus()
	defer bus.Close()

	wf := workflow.NewWorkflow("demo", agents, dag)
	executor := workflow.NewExecutor(wf, bus, workflow.WithConcurrencyPerProvider(cfg.Transport.ConcurrencyPerProvider))

	resultChan := make(chan *workflow.WorkflowResult, 1)
	errChan := make(chan error, 1)
	go func() {
		result, err := executor.Run(ctx, nil)
		if err != nil {
			errChan <- err
			return
		}
		resultChan <- result
	}()

	select {
	case result := <-resultChan:
		printResult(result)
	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	case <-ctx.Done():
		stop()
		log.Println("Shutdown signal received, waiting for in-flight tasks...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		select {
		case result := <-resultChan:
			printResult(result)
		case err := <-errChan:
			log.Printf("workflow exit error: %v", err)
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded, forcing exit")
		}
	}

	log.Println("Shutdown complete")
}

// buildAgents constructs one agentcore.Agent per configured role, each
// backed by the same transport.Client so they share its circuit breakers.
func buildAgents(cfg *config.OrchestratorConfig, client transport.Client) (map[string]*agentcore.Agent, error) {
	agents := make(map[string]*agentcore.Agent, len(cfg.Agents))
	for id, ac := range cfg.Agents {
		var system []promptmodel.Message
		if ac.SystemPrompt != "" {
			system = []promptmodel.Message{promptmodel.SystemMessage(ac.SystemPrompt)}
		}
		agents[id] = agentcore.NewAgent(id, ac.Provider, system, client)
	}
	return agents, nil
}

// modelFor resolves the model an AgentConfig should target: its own
// override, or the package default for its provider.
func modelFor(ac config.AgentConfig) string {
	if ac.Model != "" {
		return ac.Model
	}
	return defaultModels[ac.Provider]
}

// buildDemoDAG builds the two-task graph mirroring spec.md's S5 scenario:
// T1 computes, T2 depends on T1 and doubles its output. Both tasks are
// dispatched to the "coder" agent from the default config.
func buildDemoDAG(agents map[string]*agentcore.Agent) (*scheduler.DAG, error) {
	agent, ok := agents["coder"]
	if !ok {
		return nil, fmt.Errorf("cmd/llmorch: no \"coder\" agent configured")
	}

	cfg := config.DefaultConfig()
	model := modelFor(cfg.Agents["coder"])

	t1Prompt, err := promptmodel.FromText(model, promptmodel.ProviderTag(agent.Provider), "compute 2+2")
	if err != nil {
		return nil, err
	}
	t2Prompt, err := promptmodel.FromText(model, promptmodel.ProviderTag(agent.Provider), "double ${T1}")
	if err != nil {
		return nil, err
	}

	dag := scheduler.NewDAG()
	if err := dag.AddTask(&scheduler.Task{ID: "T1", AgentID: "coder", Prompt: t1Prompt}); err != nil {
		return nil, err
	}
	if err := dag.AddTask(&scheduler.Task{ID: "T2", AgentID: "coder", Prompt: t2Prompt, DependsOn: []string{"T1"}}); err != nil {
		return nil, err
	}
	return dag, nil
}

func printResult(result *workflow.WorkflowResult) {
	fmt.Printf("workflow %s finished with %d task(s), %d event(s)\n",
		result.WorkflowID, len(result.Tasks), len(result.Events))
	for id, task := range result.Tasks {
		if task.Err != nil {
			fmt.Printf("  %s: failed: %v\n", id, task.Err)
			continue
		}
		if resp, ok := task.Result.(*agentcore.ChatResponse); ok {
			fmt.Printf("  %s: %s\n", id, resp.Text())
			continue
		}
		fmt.Printf("  %s: completed\n", id)
	}
}

