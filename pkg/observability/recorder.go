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

// Package observability provides Prometheus metrics for agent invocations,
// workflow runs, and CLI commands, exported through OpenTelemetry.
package observability

import (
	"net/http"
	"time"
)

// Recorder defines the interface for recording metrics.
// This allows for dependency injection and easier testing.
type Recorder interface {
	// Invocation metrics
	RecordInvocation(agent, action string)
	RecordInvocationSuccess(agent, action string, duration time.Duration)
	RecordInvocationError(agent, action string)

	// Workflow metrics
	RecordWorkflowStart(workflow string, steps int)
	RecordWorkflowComplete(workflow string, success bool, duration time.Duration, failedSteps int)

	// Parallel batch metrics
	RecordParallelRun(workers int, duration time.Duration)

	// Command metrics
	RecordCommand(command string)
	RecordCommandError(command string)
}

// NoopMetrics is a metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) RecordInvocation(_, _ string)                                    {}
func (NoopMetrics) RecordInvocationSuccess(_, _ string, _ time.Duration)            {}
func (NoopMetrics) RecordInvocationError(_, _ string)                               {}
func (NoopMetrics) RecordWorkflowStart(_ string, _ int)                             {}
func (NoopMetrics) RecordWorkflowComplete(_ string, _ bool, _ time.Duration, _ int) {}
func (NoopMetrics) RecordParallelRun(_ int, _ time.Duration)                        {}
func (NoopMetrics) RecordCommand(_ string)                                          {}
func (NoopMetrics) RecordCommandError(_ string)                                     {}

// Handler returns a handler that reports metrics as unavailable.
func (NoopMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("metrics not enabled"))
	})
}

// Ensure implementations satisfy the interface.
var (
	_ Recorder = (*PrometheusMetrics)(nil)
	_ Recorder = NoopMetrics{}
)
