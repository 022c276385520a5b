package coordinator

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecutor_Success(t *testing.T) {
	exec, err := NewExecutor(ExecutorConfig{
		Invoker: InvokerFunc(func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
			return &Response{Status: string(StatusSuccess), Data: map[string]any{"answer": 42.0}}, nil
		}),
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	result := exec.Execute(context.Background(), Invocation{Agent: "pm", Action: "analyze"})

	if result.Status != StatusSuccess {
		t.Errorf("expected success, got %s (%s)", result.Status, result.Error)
	}
	if result.Failed() {
		t.Error("successful result must not count as executor-level failure")
	}
	if result.Agent != "pm" || result.Action != "analyze" {
		t.Errorf("result not stamped with invocation identity: %s/%s", result.Agent, result.Action)
	}
	if result.Data["answer"] != 42.0 {
		t.Errorf("expected data to pass through, got %v", result.Data)
	}
	if result.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestExecutor_ActionReportedError(t *testing.T) {
	exec, err := NewExecutor(ExecutorConfig{
		Invoker: InvokerFunc(func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
			return &Response{Status: string(StatusError), Data: map[string]any{"error": "nothing to index"}}, nil
		}),
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	result := exec.Execute(context.Background(), Invocation{Agent: "index", Action: "build"})

	if result.Status != StatusError {
		t.Errorf("expected error status, got %s", result.Status)
	}
	if result.Error != "nothing to index" {
		t.Errorf("expected error derived from data, got %q", result.Error)
	}
	// The call itself completed, so this is not an executor-level failure.
	if result.Failed() {
		t.Error("action-reported error must not count as executor-level failure")
	}
}

func TestExecutor_InvokerError(t *testing.T) {
	exec, err := NewExecutor(ExecutorConfig{
		Invoker: InvokerFunc(func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
			return nil, context.Canceled
		}),
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	result := exec.Execute(context.Background(), Invocation{Agent: "pm", Action: "analyze"})

	if !result.Failed() {
		t.Fatal("expected executor-level failure")
	}
	if result.Failure != FailureInvoker {
		t.Errorf("expected invoker failure kind, got %q", result.Failure)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	exec, err := NewExecutor(ExecutorConfig{
		Invoker: InvokerFunc(func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	start := time.Now()
	result := exec.Execute(context.Background(), Invocation{
		Agent:   "research",
		Action:  "gather",
		Timeout: 20 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if result.Failure != FailureTimeout {
		t.Fatalf("expected timeout failure, got %q (%s)", result.Failure, result.Error)
	}
	if !strings.Contains(result.Error, "timeout after") {
		t.Errorf("expected timeout message, got %q", result.Error)
	}
	if result.Duration <= 0 {
		t.Error("expected duration to be measured on the timeout path")
	}
	if elapsed > 5*time.Second {
		t.Errorf("timeout path took too long: %s", elapsed)
	}
}

func TestExecutor_AbandonsStuckInvoker(t *testing.T) {
	release := make(chan struct{})
	exec, err := NewExecutor(ExecutorConfig{
		Invoker: InvokerFunc(func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
			// Ignores ctx entirely.
			<-release
			return &Response{Status: string(StatusSuccess)}, nil
		}),
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	defer close(release)

	done := make(chan Result, 1)
	go func() {
		done <- exec.Execute(context.Background(), Invocation{
			Agent:   "pm",
			Action:  "analyze",
			Timeout: 20 * time.Millisecond,
		})
	}()

	select {
	case result := <-done:
		if result.Failure != FailureTimeout {
			t.Errorf("expected timeout failure, got %q", result.Failure)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute blocked on a non-cooperative invoker")
	}
}

func TestExecutor_InvokerPanic(t *testing.T) {
	exec, err := NewExecutor(ExecutorConfig{
		Invoker: InvokerFunc(func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
			panic("agent bridge blew up")
		}),
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	result := exec.Execute(context.Background(), Invocation{Agent: "pm", Action: "analyze"})

	if result.Failure != FailureInvoker {
		t.Fatalf("expected invoker failure, got %q", result.Failure)
	}
	if !strings.Contains(result.Error, "panic") {
		t.Errorf("expected panic detail in error, got %q", result.Error)
	}
}

func TestExecutor_RequiresInvoker(t *testing.T) {
	if _, err := NewExecutor(ExecutorConfig{}); err == nil {
		t.Fatal("expected error for missing invoker")
	}
}

func TestExecutor_EmptyStatusIsSuccess(t *testing.T) {
	exec, err := NewExecutor(ExecutorConfig{
		Invoker: InvokerFunc(func(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
			return &Response{Data: map[string]any{"ok": true}}, nil
		}),
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	result := exec.Execute(context.Background(), Invocation{Agent: "pm", Action: "analyze"})
	if result.Status != StatusSuccess {
		t.Errorf("expected empty status to default to success, got %s", result.Status)
	}
}
