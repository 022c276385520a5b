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

// Package coordinator implements the invocation coordinator: bounded-concurrency
// parallel execution of agent invocations, dependency-ordered workflow execution
// with per-step failure policy, and result aggregation with quality-gate
// evaluation.
//
// The coordinator owns no state across calls. Each call to ExecuteParallel or
// ExecuteWorkflow is independent, so a single Coordinator is safe to use
// concurrently with independent inputs as long as the injected Invoker
// tolerates concurrent calls.
package coordinator

import (
	"time"
)

// Status is the outcome reported for a single invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FailureKind distinguishes an executor-level failure from an error the
// invoked action itself reported. A result with FailureNone means the invoker
// delivered a response intact, even when that response carries an error
// status. Workflow dependency resolution and the per-step error policy key
// off this field, not off Status.
type FailureKind string

const (
	// FailureNone means the invoker call itself succeeded.
	FailureNone FailureKind = ""
	// FailureTimeout means the call was abandoned after exceeding its timeout.
	FailureTimeout FailureKind = "timeout"
	// FailureInvoker means the invoker returned an error or a malformed response.
	FailureInvoker FailureKind = "invoker"
)

// Invocation describes one action call against a named agent.
// Invocations are immutable once constructed.
type Invocation struct {
	// Agent is the name of the agent to invoke.
	Agent string `json:"agent"`

	// Action is the operation requested of the agent.
	Action string `json:"action"`

	// Params are passed to the agent verbatim.
	Params map[string]any `json:"params,omitempty"`

	// Timeout overrides the executor default when non-zero.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Response is what an Invoker returns for a successful transport-level call.
// Status and Data are taken from the agent verbatim; Error may be set by the
// agent even alongside a success status.
type Response struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	Error  string         `json:"error,omitempty"`
}

// Result is the outcome of exactly one invocation attempt. It is fully
// populated on every path, including timeouts and invoker failures, and is
// never mutated after the Executor returns it.
type Result struct {
	Agent     string         `json:"agent"`
	Action    string         `json:"action"`
	Status    Status         `json:"status"`
	Data      map[string]any `json:"data"`
	Duration  time.Duration  `json:"duration"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`

	// Failure records whether the executor itself failed or timed out.
	// It is execution metadata, not part of the reported payload.
	Failure FailureKind `json:"-"`
}

// Failed reports whether the executor-level call failed or timed out,
// as opposed to the action reporting a logical error.
func (r Result) Failed() bool {
	return r.Failure != FailureNone
}

func successResult(inv Invocation, resp *Response, duration time.Duration) Result {
	status := StatusSuccess
	if resp.Status != "" {
		status = Status(resp.Status)
	}
	errMsg := resp.Error
	if status == StatusError && errMsg == "" {
		// Agents historically report their error under data.error.
		if s, ok := resp.Data["error"].(string); ok && s != "" {
			errMsg = s
		} else {
			errMsg = "unknown error"
		}
	}
	return Result{
		Agent:     inv.Agent,
		Action:    inv.Action,
		Status:    status,
		Data:      resp.Data,
		Duration:  duration,
		Timestamp: time.Now(),
		Error:     errMsg,
	}
}

func failureResult(inv Invocation, kind FailureKind, errMsg string, duration time.Duration) Result {
	return Result{
		Agent:     inv.Agent,
		Action:    inv.Action,
		Status:    StatusError,
		Data:      map[string]any{},
		Duration:  duration,
		Timestamp: time.Now(),
		Error:     errMsg,
		Failure:   kind,
	}
}
