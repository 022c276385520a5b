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
	"time"

	"github.com/kadirpekel/tandem/pkg/config"
)

// WorkflowResult is the aggregate outcome of a completed workflow run.
type WorkflowResult struct {
	RunID              string         `json:"run_id"`
	Workflow           string         `json:"workflow"`
	StepsCompleted     int            `json:"steps_completed"`
	StepsFailed        int            `json:"steps_failed"`
	TotalDuration      time.Duration  `json:"total_duration"`
	Results            []Result       `json:"results"`
	QualityGatesPassed bool           `json:"quality_gates_passed"`
	GateChecks         []GateCheck    `json:"gate_checks,omitempty"`
	Summary            map[string]any `json:"summary"`
}

// GateCheck is the evaluation of a single quality gate threshold.
type GateCheck struct {
	Name      string  `json:"name"`
	Passed    bool    `json:"passed"`
	Threshold float64 `json:"threshold"`
	Actual    float64 `json:"actual"`
	Missing   bool    `json:"missing,omitempty"`
}

// Aggregate folds the per-step results of a finished run into a
// WorkflowResult, evaluating the workflow's quality gates against the
// result data. Gates compare inclusively: an actual value exactly at the
// threshold passes. A gate whose field appears in no result data fails.
func Aggregate(wf *config.Workflow, results []Result) *WorkflowResult {
	wfResult := &WorkflowResult{
		Workflow:   wf.Name,
		Results:    results,
		GateChecks: evaluateGates(wf.QualityGates, results),
	}

	for _, r := range results {
		wfResult.TotalDuration += r.Duration
		if r.Status == StatusSuccess {
			wfResult.StepsCompleted++
		} else {
			wfResult.StepsFailed++
		}
	}

	wfResult.QualityGatesPassed = true
	for _, check := range wfResult.GateChecks {
		if !check.Passed {
			wfResult.QualityGatesPassed = false
			break
		}
	}

	wfResult.Summary = map[string]any{
		"total_steps":  len(results),
		"success_rate": successRate(wfResult.StepsCompleted, len(results)),
	}
	for _, check := range wfResult.GateChecks {
		if !check.Missing {
			wfResult.Summary[check.Name] = check.Actual
		}
	}

	return wfResult
}

func successRate(completed, total int) float64 {
	if total == 0 {
		return 1.0
	}
	return float64(completed) / float64(total)
}

func evaluateGates(gates *config.QualityGates, results []Result) []GateCheck {
	if gates == nil {
		return nil
	}

	var checks []GateCheck
	if gates.MaxFixmes != nil {
		checks = append(checks, checkGate("fixme_count", float64(*gates.MaxFixmes), results, gateMax))
	}
	if gates.MinDocumentationScore != nil {
		checks = append(checks, checkGate("documentation_score", *gates.MinDocumentationScore, results, gateMin))
	}
	if gates.MaxDeadCodePercent != nil {
		checks = append(checks, checkGate("dead_code_percent", *gates.MaxDeadCodePercent, results, gateMax))
	}
	return checks
}

type gateKind int

const (
	// gateMax gates pass when the worst observed value stays at or below
	// the threshold; gateMin when it stays at or above.
	gateMax gateKind = iota
	gateMin
)

func checkGate(field string, threshold float64, results []Result, kind gateKind) GateCheck {
	check := GateCheck{
		Name:      field,
		Threshold: threshold,
		Missing:   true,
	}

	for _, r := range results {
		value, ok := numericField(r.Data, field)
		if !ok {
			continue
		}
		if check.Missing {
			check.Actual = value
			check.Missing = false
			continue
		}
		switch kind {
		case gateMax:
			if value > check.Actual {
				check.Actual = value
			}
		case gateMin:
			if value < check.Actual {
				check.Actual = value
			}
		}
	}

	if check.Missing {
		return check
	}
	switch kind {
	case gateMax:
		check.Passed = check.Actual <= threshold
	case gateMin:
		check.Passed = check.Actual >= threshold
	}
	return check
}

// numericField extracts a numeric value from result data. JSON decoding
// yields float64, but invokers constructing data in-process may hand over
// native integer types.
func numericField(data map[string]any, field string) (float64, bool) {
	raw, ok := data[field]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Plan describes what a workflow run would execute, without executing it.
type Plan struct {
	Workflow string     `json:"workflow"`
	Steps    []PlanStep `json:"steps"`
	Gates    []string   `json:"quality_gates,omitempty"`
}

// PlanStep is a single step of a Plan.
type PlanStep struct {
	Name      string        `json:"name"`
	Agent     string        `json:"agent"`
	Action    string        `json:"action"`
	DependsOn []string      `json:"depends_on,omitempty"`
	OnError   string        `json:"on_error"`
	Timeout   time.Duration `json:"timeout,omitempty"`
}

// PlanWorkflow builds the execution plan for a workflow. The workflow is
// expected to be validated already; planning performs no dependency checks
// of its own.
func PlanWorkflow(wf *config.Workflow) *Plan {
	plan := &Plan{
		Workflow: wf.Name,
		Steps:    make([]PlanStep, 0, len(wf.Steps)),
	}
	for i := range wf.Steps {
		step := &wf.Steps[i]
		plan.Steps = append(plan.Steps, PlanStep{
			Name:      step.Name,
			Agent:     step.Agent,
			Action:    step.Action,
			DependsOn: step.DependsOn,
			OnError:   string(step.OnError),
			Timeout:   step.Timeout,
		})
	}
	if wf.QualityGates != nil {
		if wf.QualityGates.MaxFixmes != nil {
			plan.Gates = append(plan.Gates, "fixme_count")
		}
		if wf.QualityGates.MinDocumentationScore != nil {
			plan.Gates = append(plan.Gates, "documentation_score")
		}
		if wf.QualityGates.MaxDeadCodePercent != nil {
			plan.Gates = append(plan.Gates, "dead_code_percent")
		}
	}
	return plan
}
