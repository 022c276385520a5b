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

package config

import (
	"fmt"
	"time"
)

// ErrorPolicy decides what happens when a workflow step's invocation fails
// at the executor level.
type ErrorPolicy string

const (
	// OnErrorFail aborts the workflow on the first failure.
	OnErrorFail ErrorPolicy = "fail"

	// OnErrorContinue records the failure and moves on. The failed step does
	// not satisfy dependencies of later steps.
	OnErrorContinue ErrorPolicy = "continue"
)

// Workflow is a named sequence of agent invocations with dependency
// constraints and optional quality gates.
type Workflow struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Workflow Name,description=Unique identifier for this workflow"`

	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description,description=Human-readable description of the workflow"`

	// Steps run sequentially in declaration order.
	Steps []WorkflowStep `yaml:"steps,omitempty" json:"steps,omitempty" jsonschema:"title=Steps,description=Steps executed in declaration order"`

	// QualityGates are evaluated against the collected results after the
	// final step.
	QualityGates *QualityGates `yaml:"quality_gates,omitempty" json:"quality_gates,omitempty" jsonschema:"title=Quality Gates,description=Thresholds checked against aggregated result data"`
}

// WorkflowStep is a single invocation within a workflow.
type WorkflowStep struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Step Name,description=Unique name within the workflow"`

	Agent string `yaml:"agent,omitempty" json:"agent,omitempty" jsonschema:"title=Agent,description=Registered agent to invoke"`

	Action string `yaml:"action,omitempty" json:"action,omitempty" jsonschema:"title=Action,description=Action requested from the agent"`

	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty" jsonschema:"title=Parameters,description=Action parameters passed to the agent"`

	// DependsOn names earlier steps that must have completed before this
	// step may run.
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty" jsonschema:"title=Dependencies,description=Earlier steps that must complete first"`

	// OnError defaults to fail.
	OnError ErrorPolicy `yaml:"on_error,omitempty" json:"on_error,omitempty" jsonschema:"title=Error Policy,description=Behavior on invocation failure,enum=fail,enum=continue,default=fail"`

	// Timeout overrides agent and coordinator defaults for this step.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Step-level invocation timeout"`
}

// QualityGates holds threshold checks applied to aggregated result data.
// All comparisons are inclusive. A nil field disables that gate.
type QualityGates struct {
	// MaxFixmes passes when the highest reported fixme_count is at or below
	// this value.
	MaxFixmes *int `yaml:"max_fixmes,omitempty" json:"max_fixmes,omitempty" jsonschema:"title=Max Fixmes,description=Highest acceptable fixme_count across results"`

	// MinDocumentationScore passes when the lowest reported
	// documentation_score is at or above this value.
	MinDocumentationScore *float64 `yaml:"min_documentation_score,omitempty" json:"min_documentation_score,omitempty" jsonschema:"title=Min Documentation Score,description=Lowest acceptable documentation_score across results"`

	// MaxDeadCodePercent passes when the highest reported dead_code_percent
	// is at or below this value.
	MaxDeadCodePercent *float64 `yaml:"max_dead_code_percent,omitempty" json:"max_dead_code_percent,omitempty" jsonschema:"title=Max Dead Code Percent,description=Highest acceptable dead_code_percent across results"`
}

// Validate checks the gate thresholds.
func (g *QualityGates) Validate() error {
	if g.MaxFixmes != nil && *g.MaxFixmes < 0 {
		return fmt.Errorf("max_fixmes must not be negative")
	}
	if g.MinDocumentationScore != nil && *g.MinDocumentationScore < 0 {
		return fmt.Errorf("min_documentation_score must not be negative")
	}
	if g.MaxDeadCodePercent != nil && (*g.MaxDeadCodePercent < 0 || *g.MaxDeadCodePercent > 100) {
		return fmt.Errorf("max_dead_code_percent must be between 0 and 100")
	}
	return nil
}

// SetDefaults applies default values.
func (w *Workflow) SetDefaults() {
	for i := range w.Steps {
		if w.Steps[i].OnError == "" {
			w.Steps[i].OnError = OnErrorFail
		}
	}
}

// Validate checks the workflow for consistency. Dependencies may only refer
// to steps declared earlier, which rules out cycles.
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow %q has no steps", w.Name)
	}

	seen := make(map[string]struct{}, len(w.Steps))
	for i := range w.Steps {
		step := &w.Steps[i]
		if step.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if _, dup := seen[step.Name]; dup {
			return fmt.Errorf("duplicate step name %q", step.Name)
		}
		if step.Agent == "" {
			return fmt.Errorf("step %q: agent is required", step.Name)
		}
		if step.Action == "" {
			return fmt.Errorf("step %q: action is required", step.Name)
		}
		switch step.OnError {
		case OnErrorFail, OnErrorContinue:
			// valid
		default:
			return fmt.Errorf("step %q: invalid on_error %q (must be fail or continue)", step.Name, step.OnError)
		}
		for _, dep := range step.DependsOn {
			if dep == step.Name {
				return fmt.Errorf("step %q depends on itself", step.Name)
			}
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("step %q depends on %q, which is not declared earlier", step.Name, dep)
			}
		}
		seen[step.Name] = struct{}{}
	}

	if w.QualityGates != nil {
		if err := w.QualityGates.Validate(); err != nil {
			return fmt.Errorf("quality_gates: %w", err)
		}
	}
	return nil
}
