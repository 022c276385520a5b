package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kadirpekel/tandem/pkg/config"
)

func newTestCoordinator(t *testing.T, fn InvokerFunc) *Coordinator {
	t.Helper()
	exec, err := NewExecutor(ExecutorConfig{Invoker: fn})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	coord, err := New(Config{Executor: exec})
	if err != nil {
		t.Fatalf("failed to create coordinator: %v", err)
	}
	return coord
}

func echoInvoker(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
	return &Response{Status: "success", Data: map[string]any{"agent": agent, "action": action}}, nil
}

func TestExecuteParallel_PreservesOrder(t *testing.T) {
	coord := newTestCoordinator(t, func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
		// Later invocations finish first.
		if agent == "a0" {
			time.Sleep(30 * time.Millisecond)
		}
		return &Response{Status: "success", Data: map[string]any{"agent": agent}}, nil
	})

	invs := make([]Invocation, 5)
	for i := range invs {
		invs[i] = Invocation{Agent: fmt.Sprintf("a%d", i), Action: "work"}
	}

	results := coord.ExecuteParallel(context.Background(), invs, 5)

	if len(results) != len(invs) {
		t.Fatalf("expected %d results, got %d", len(invs), len(results))
	}
	for i, r := range results {
		if want := fmt.Sprintf("a%d", i); r.Agent != want {
			t.Errorf("result %d: expected agent %s, got %s", i, want, r.Agent)
		}
	}
}

func TestExecuteParallel_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	var mu sync.Mutex

	coord := newTestCoordinator(t, func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
		n := inFlight.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return &Response{Status: "success"}, nil
	})

	invs := make([]Invocation, 10)
	for i := range invs {
		invs[i] = Invocation{Agent: "a", Action: "work"}
	}

	coord.ExecuteParallel(context.Background(), invs, 2)

	if got := peak.Load(); got > 2 {
		t.Errorf("expected at most 2 in flight, observed %d", got)
	}
}

func TestExecuteParallel_FailureIsolation(t *testing.T) {
	coord := newTestCoordinator(t, func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
		if agent == "bad" {
			return nil, errors.New("bridge unavailable")
		}
		return &Response{Status: "success"}, nil
	})

	results := coord.ExecuteParallel(context.Background(), []Invocation{
		{Agent: "ok1", Action: "work"},
		{Agent: "bad", Action: "work"},
		{Agent: "ok2", Action: "work"},
	}, 3)

	if results[0].Status != StatusSuccess || results[2].Status != StatusSuccess {
		t.Error("healthy invocations must not be affected by a failing sibling")
	}
	if !results[1].Failed() {
		t.Error("expected the failing invocation to be reported in its own slot")
	}
}

func TestExecuteParallel_EmptyAndClampedLimit(t *testing.T) {
	coord := newTestCoordinator(t, echoInvoker)

	results := coord.ExecuteParallel(context.Background(), nil, 3)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil result slice, got %v", results)
	}

	// A limit below 1 must not panic and must still run everything.
	results = coord.ExecuteParallel(context.Background(), []Invocation{
		{Agent: "a", Action: "work"},
		{Agent: "b", Action: "work"},
	}, 0)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func stepWorkflow(steps ...config.WorkflowStep) *config.Workflow {
	wf := &config.Workflow{Name: "test-flow", Steps: steps}
	wf.SetDefaults()
	return wf
}

func TestExecuteWorkflow_HappyPath(t *testing.T) {
	coord := newTestCoordinator(t, echoInvoker)

	wf := stepWorkflow(
		config.WorkflowStep{Name: "plan", Agent: "pm", Action: "analyze"},
		config.WorkflowStep{Name: "gather", Agent: "research", Action: "collect", DependsOn: []string{"plan"}},
	)

	res, err := coord.ExecuteWorkflow(context.Background(), wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.StepsCompleted != 2 || res.StepsFailed != 0 {
		t.Errorf("expected 2 completed / 0 failed, got %d / %d", res.StepsCompleted, res.StepsFailed)
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
	if !res.QualityGatesPassed {
		t.Error("a workflow without gates must pass gate evaluation")
	}
}

func TestExecuteWorkflow_FailPolicyAbortsWithPartialResults(t *testing.T) {
	coord := newTestCoordinator(t, func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
		if agent == "research" {
			return nil, errors.New("bridge down")
		}
		return &Response{Status: "success"}, nil
	})

	wf := stepWorkflow(
		config.WorkflowStep{Name: "plan", Agent: "pm", Action: "analyze"},
		config.WorkflowStep{Name: "gather", Agent: "research", Action: "collect"},
		config.WorkflowStep{Name: "index", Agent: "index", Action: "build"},
	)

	_, err := coord.ExecuteWorkflow(context.Background(), wf)
	if err == nil {
		t.Fatal("expected workflow error")
	}

	var wfErr *WorkflowError
	if !errors.As(err, &wfErr) {
		t.Fatalf("expected *WorkflowError, got %T", err)
	}
	if wfErr.Cause != CausePolicy {
		t.Errorf("expected policy cause, got %s", wfErr.Cause)
	}
	if wfErr.Step != "gather" {
		t.Errorf("expected failing step gather, got %s", wfErr.Step)
	}
	// Both the completed step and the failed one are collected; the third
	// step never ran.
	if len(wfErr.Results) != 2 {
		t.Errorf("expected 2 partial results, got %d", len(wfErr.Results))
	}
}

func TestExecuteWorkflow_ContinuePolicyBlocksDependents(t *testing.T) {
	coord := newTestCoordinator(t, func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
		if agent == "research" {
			return nil, errors.New("bridge down")
		}
		return &Response{Status: "success"}, nil
	})

	wf := stepWorkflow(
		config.WorkflowStep{Name: "gather", Agent: "research", Action: "collect", OnError: config.OnErrorContinue},
		config.WorkflowStep{Name: "summarize", Agent: "pm", Action: "summarize", DependsOn: []string{"gather"}},
	)

	_, err := coord.ExecuteWorkflow(context.Background(), wf)

	var wfErr *WorkflowError
	if !errors.As(err, &wfErr) {
		t.Fatalf("expected *WorkflowError, got %v", err)
	}
	if wfErr.Cause != CauseDependency {
		t.Errorf("expected dependency cause, got %s", wfErr.Cause)
	}
	if wfErr.Step != "summarize" {
		t.Errorf("expected blocked step summarize, got %s", wfErr.Step)
	}
	if len(wfErr.Results) != 1 {
		t.Errorf("expected the failed step's result to be carried, got %d results", len(wfErr.Results))
	}
}

func TestExecuteWorkflow_ActionErrorStillSatisfiesDependencies(t *testing.T) {
	coord := newTestCoordinator(t, func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
		if agent == "index" {
			// The call completed; the action reports a logical error.
			return &Response{Status: "error", Error: "nothing to index"}, nil
		}
		return &Response{Status: "success"}, nil
	})

	wf := stepWorkflow(
		config.WorkflowStep{Name: "index", Agent: "index", Action: "build"},
		config.WorkflowStep{Name: "verify", Agent: "pm", Action: "verify", DependsOn: []string{"index"}},
	)

	res, err := coord.ExecuteWorkflow(context.Background(), wf)
	if err != nil {
		t.Fatalf("action-level error must not abort the workflow: %v", err)
	}
	if res.StepsFailed != 1 {
		t.Errorf("expected the error-status step counted as failed, got %d", res.StepsFailed)
	}
	if res.StepsCompleted != 1 {
		t.Errorf("expected the dependent step to run, got %d completed", res.StepsCompleted)
	}
}

func TestExecuteWorkflow_StrictOverridesContinue(t *testing.T) {
	coord := newTestCoordinator(t, func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
		return nil, errors.New("bridge down")
	})

	wf := stepWorkflow(
		config.WorkflowStep{Name: "gather", Agent: "research", Action: "collect", OnError: config.OnErrorContinue},
	)

	_, err := coord.ExecuteWorkflow(context.Background(), wf, WithStrict())

	var wfErr *WorkflowError
	if !errors.As(err, &wfErr) {
		t.Fatalf("expected *WorkflowError under strict mode, got %v", err)
	}
	if wfErr.Cause != CausePolicy {
		t.Errorf("expected policy cause, got %s", wfErr.Cause)
	}
}

func TestExecuteWorkflow_DependencyAbortIgnoresPolicy(t *testing.T) {
	coord := newTestCoordinator(t, echoInvoker)

	// Validation would reject this workflow; the engine must still guard
	// against unmet dependencies on its own.
	wf := &config.Workflow{
		Name: "broken",
		Steps: []config.WorkflowStep{
			{Name: "late", Agent: "pm", Action: "work", DependsOn: []string{"missing"}, OnError: config.OnErrorContinue},
		},
	}

	_, err := coord.ExecuteWorkflow(context.Background(), wf)

	var wfErr *WorkflowError
	if !errors.As(err, &wfErr) {
		t.Fatalf("expected *WorkflowError, got %v", err)
	}
	if wfErr.Cause != CauseDependency {
		t.Errorf("expected dependency cause even with continue policy, got %s", wfErr.Cause)
	}
}

func TestNew_RequiresExecutor(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing executor")
	}
}
