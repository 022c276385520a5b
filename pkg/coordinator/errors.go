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
	"fmt"
)

// AbortCause classifies why a workflow run aborted. Callers branch on this
// tag instead of matching error strings.
type AbortCause string

const (
	// CauseDependency means a step's declared dependency was not in the
	// completed set. Dependency violations abort the workflow regardless of
	// the step's own error policy.
	CauseDependency AbortCause = "dependency"

	// CausePolicy means a step failed at the executor level and its error
	// policy is fail.
	CausePolicy AbortCause = "policy"
)

// WorkflowError is returned by ExecuteWorkflow when a run aborts. It carries
// the offending step, the abort cause, and the results collected before the
// abort so callers can still report partial progress.
type WorkflowError struct {
	Workflow string
	Step     string
	Cause    AbortCause
	Message  string

	// Results holds every result recorded before the abort, in step order.
	Results []Result

	Err error
}

func (e *WorkflowError) Error() string {
	msg := fmt.Sprintf("workflow %q aborted at step %q: %s", e.Workflow, e.Step, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func newDependencyError(workflow, step, dependency string, results []Result) *WorkflowError {
	return &WorkflowError{
		Workflow: workflow,
		Step:     step,
		Cause:    CauseDependency,
		Message:  fmt.Sprintf("dependency %q not completed", dependency),
		Results:  results,
	}
}

func newPolicyError(workflow, step, reason string, results []Result) *WorkflowError {
	return &WorkflowError{
		Workflow: workflow,
		Step:     step,
		Cause:    CausePolicy,
		Message:  reason,
		Results:  results,
	}
}
