// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kadirpekel/tandem/pkg/observability"
)

// DefaultTimeout is applied to invocations that carry no timeout of their own
// when the executor was not configured with a default.
const DefaultTimeout = 60 * time.Second

// Invoker performs the actual agent call. Implementations must honor the
// context for cancellation; the executor additionally abandons calls that
// outlive their timeout, so a blocking implementation only leaks its own
// goroutine, never the caller's.
type Invoker interface {
	Invoke(ctx context.Context, agent, action string, params map[string]any) (*Response, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, agent, action string, params map[string]any) (*Response, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, agent, action string, params map[string]any) (*Response, error) {
	return f(ctx, agent, action, params)
}

// ExecutorConfig contains the configuration for creating an Executor.
type ExecutorConfig struct {
	// Invoker performs agent calls. Required.
	Invoker Invoker

	// Metrics receives invocation counters and duration observations.
	// Nil disables recording.
	Metrics observability.Recorder

	// DefaultTimeout applies to invocations without their own timeout.
	// Zero means DefaultTimeout.
	DefaultTimeout time.Duration
}

// Executor runs single invocations against the configured Invoker. It never
// returns an error to its caller: every failure mode, including panics inside
// the invoker, is converted into a Result with StatusError.
type Executor struct {
	invoker        Invoker
	metrics        observability.Recorder
	defaultTimeout time.Duration
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		invoker:        cfg.Invoker,
		metrics:        metrics,
		defaultTimeout: timeout,
	}, nil
}

type invokeOutcome struct {
	resp *Response
	err  error
}

// Execute performs one invocation and always returns a fully populated
// Result. Duration is measured on every path, including timeouts. Metrics
// recording happens after the result is built and cannot alter it.
func (e *Executor) Execute(ctx context.Context, inv Invocation) Result {
	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	e.metrics.RecordInvocation(inv.Agent, inv.Action)

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome := make(chan invokeOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcome <- invokeOutcome{err: fmt.Errorf("invoker panic: %v", r)}
			}
		}()
		resp, err := e.invoker.Invoke(callCtx, inv.Agent, inv.Action, inv.Params)
		outcome <- invokeOutcome{resp: resp, err: err}
	}()

	var result Result
	select {
	case out := <-outcome:
		duration := time.Since(start)
		switch {
		case errors.Is(out.err, context.DeadlineExceeded):
			// A cooperative invoker may report the deadline itself before
			// the ctx branch is observed.
			result = failureResult(inv, FailureTimeout,
				fmt.Sprintf("timeout after %s", timeout), duration)
		case out.err != nil:
			result = failureResult(inv, FailureInvoker, out.err.Error(), duration)
		case out.resp == nil:
			result = failureResult(inv, FailureInvoker, "invoker returned no response", duration)
		default:
			result = successResult(inv, out.resp, duration)
		}
	case <-callCtx.Done():
		// The in-flight call is abandoned; its goroutine drains into the
		// buffered channel when it eventually returns.
		duration := time.Since(start)
		if callCtx.Err() == context.DeadlineExceeded {
			result = failureResult(inv, FailureTimeout,
				fmt.Sprintf("timeout after %s", timeout), duration)
		} else {
			result = failureResult(inv, FailureInvoker,
				fmt.Sprintf("invocation cancelled: %v", context.Cause(ctx)), duration)
		}
	}

	e.record(result)
	return result
}

// record reports the outcome to the metrics recorder. Recording must never
// influence the result or escape, so panics are swallowed here.
func (e *Executor) record(result Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("metrics recording panicked", "agent", result.Agent, "panic", r)
		}
	}()

	if result.Status == StatusError {
		e.metrics.RecordInvocationError(result.Agent, result.Action)
		return
	}
	e.metrics.RecordInvocationSuccess(result.Agent, result.Action, result.Duration)
}
