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
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/tandem/pkg/config"
	"github.com/kadirpekel/tandem/pkg/observability"
)

// StepStatus is the life cycle state of a workflow step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// Config contains the configuration for creating a Coordinator.
type Config struct {
	// Executor runs individual invocations. Required.
	Executor *Executor

	// Metrics receives workflow and batch level observations.
	// Nil disables recording.
	Metrics observability.Recorder
}

// Coordinator drives agent invocations, either as a bounded-concurrency
// parallel batch or as a sequential workflow with dependency resolution.
type Coordinator struct {
	executor *Executor
	metrics  observability.Recorder
}

// New creates a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Coordinator{
		executor: cfg.Executor,
		metrics:  metrics,
	}, nil
}

// ExecuteParallel runs the invocations concurrently with at most limit calls
// in flight at once. The returned slice has the same length and index order
// as the input, independent of completion order. A failing invocation is
// reported in its own slot and never cancels, delays, or alters any other.
// A limit below 1 is treated as 1.
func (c *Coordinator) ExecuteParallel(ctx context.Context, invs []Invocation, limit int) []Result {
	if len(invs) == 0 {
		return []Result{}
	}
	if limit < 1 {
		limit = 1
	}

	batchID := uuid.NewString()
	slog.Debug("starting parallel batch",
		"batch_id", batchID, "invocations", len(invs), "limit", limit)

	start := time.Now()
	results := make([]Result, len(invs))

	// Workers return nil unconditionally: every failure is captured in the
	// per-slot Result, so one slow or failing invocation cannot take the
	// rest of the batch down with it.
	var g errgroup.Group
	g.SetLimit(limit)
	for i, inv := range invs {
		i, inv := i, inv
		g.Go(func() error {
			results[i] = c.executor.Execute(ctx, inv)
			return nil
		})
	}
	_ = g.Wait()

	duration := time.Since(start)
	c.metrics.RecordParallelRun(limit, duration)
	slog.Debug("parallel batch finished", "batch_id", batchID, "duration", duration)

	return results
}

// RunOption adjusts a single workflow run.
type RunOption func(*runOptions)

type runOptions struct {
	strict bool
}

// WithStrict makes every step behave as if its error policy were fail,
// aborting the run on the first executor-level failure.
func WithStrict() RunOption {
	return func(o *runOptions) {
		o.strict = true
	}
}

// ExecuteWorkflow runs the workflow steps sequentially in declaration order.
//
// A step runs only once every name in its depends_on is in the completed set;
// a missing dependency aborts the run immediately with a *WorkflowError of
// CauseDependency, regardless of the step's own error policy. A step counts
// as completed whenever the executor-level call did not fail or time out,
// even if the action itself reported an error status; that distinction is
// deliberate and dependency resolution relies on it. An executor-level
// failure under policy fail aborts with CausePolicy; under policy continue
// the failed step is recorded and skipped for dependency purposes.
//
// On abort the returned *WorkflowError carries the results collected so far.
func (c *Coordinator) ExecuteWorkflow(ctx context.Context, wf *config.Workflow, opts ...RunOption) (*WorkflowResult, error) {
	var options runOptions
	for _, opt := range opts {
		opt(&options)
	}

	runID := uuid.NewString()
	slog.Info("starting workflow", "workflow", wf.Name, "run_id", runID, "steps", len(wf.Steps))
	c.metrics.RecordWorkflowStart(wf.Name, len(wf.Steps))

	start := time.Now()
	completed := make(map[string]struct{}, len(wf.Steps))
	results := make([]Result, 0, len(wf.Steps))

	for i := range wf.Steps {
		step := &wf.Steps[i]

		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				c.metrics.RecordWorkflowComplete(wf.Name, false, time.Since(start), countFailed(results))
				slog.Error("workflow aborted on unmet dependency",
					"workflow", wf.Name, "run_id", runID, "step", step.Name, "dependency", dep)
				return nil, newDependencyError(wf.Name, step.Name, dep, results)
			}
		}

		slog.Debug("executing step", "workflow", wf.Name, "step", step.Name,
			"agent", step.Agent, "action", step.Action, "status", StepStatusRunning)

		result := c.executor.Execute(ctx, Invocation{
			Agent:   step.Agent,
			Action:  step.Action,
			Params:  step.Params,
			Timeout: step.Timeout,
		})
		results = append(results, result)

		if result.Failed() {
			policy := step.OnError
			if options.strict {
				policy = config.OnErrorFail
			}
			if policy == config.OnErrorContinue {
				slog.Warn("step failed, continuing",
					"workflow", wf.Name, "step", step.Name, "error", result.Error)
				continue
			}
			c.metrics.RecordWorkflowComplete(wf.Name, false, time.Since(start), countFailed(results))
			slog.Error("workflow aborted on step failure",
				"workflow", wf.Name, "run_id", runID, "step", step.Name, "error", result.Error)
			return nil, newPolicyError(wf.Name, step.Name, result.Error, results)
		}

		completed[step.Name] = struct{}{}
		slog.Debug("step finished", "workflow", wf.Name, "step", step.Name,
			"status", StepStatusCompleted, "duration", result.Duration)
	}

	wfResult := Aggregate(wf, results)
	wfResult.RunID = runID

	elapsed := time.Since(start)
	success := wfResult.StepsFailed == 0 && wfResult.QualityGatesPassed
	c.metrics.RecordWorkflowComplete(wf.Name, success, elapsed, wfResult.StepsFailed)
	slog.Info("workflow finished", "workflow", wf.Name, "run_id", runID,
		"completed", wfResult.StepsCompleted, "failed", wfResult.StepsFailed,
		"gates_passed", wfResult.QualityGatesPassed, "duration", elapsed)

	return wfResult, nil
}

func countFailed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Status == StatusError {
			n++
		}
	}
	return n
}
