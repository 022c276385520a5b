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

package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" jsonschema:"title=Enabled,description=Enable Prometheus metrics collection,default=false"`
	Host    string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,description=Host for the metrics endpoint,default=127.0.0.1"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"title=Port,description=Port for the metrics endpoint,default=9090"`
}

// SetDefaults applies default values.
func (c *MetricsConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 9090
	}
}

// Validate checks the configuration.
func (c *MetricsConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Port)
	}
	return nil
}

// PrometheusMetrics records metrics through OpenTelemetry instruments backed
// by a Prometheus exporter. The zero value is a safe no-op.
type PrometheusMetrics struct {
	invocationDuration metric.Float64Histogram
	invocationsTotal   metric.Int64Counter
	invocationErrors   metric.Int64Counter

	workflowDuration metric.Float64Histogram
	workflowRuns     metric.Int64Counter
	workflowFailures metric.Int64Counter
	stepsFailed      metric.Int64Counter

	parallelDuration metric.Float64Histogram
	parallelWorkers  metric.Int64Histogram

	commandsTotal metric.Int64Counter
	commandErrors metric.Int64Counter
}

// InitMetrics sets up the OpenTelemetry meter provider with a Prometheus
// exporter and creates all instruments. When cfg.Enabled is false it returns
// an empty PrometheusMetrics whose methods do nothing.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("tandem")

	m := &PrometheusMetrics{}

	m.invocationDuration, err = meter.Float64Histogram(
		"tandem_invocation_duration_seconds",
		metric.WithDescription("Agent invocation duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocation duration histogram: %w", err)
	}

	m.invocationsTotal, err = meter.Int64Counter(
		"tandem_invocations_total",
		metric.WithDescription("Total agent invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocations counter: %w", err)
	}

	m.invocationErrors, err = meter.Int64Counter(
		"tandem_invocation_errors_total",
		metric.WithDescription("Total failed agent invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocation errors counter: %w", err)
	}

	m.workflowDuration, err = meter.Float64Histogram(
		"tandem_workflow_duration_seconds",
		metric.WithDescription("Workflow run duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow duration histogram: %w", err)
	}

	m.workflowRuns, err = meter.Int64Counter(
		"tandem_workflow_runs_total",
		metric.WithDescription("Total workflow runs started"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow runs counter: %w", err)
	}

	m.workflowFailures, err = meter.Int64Counter(
		"tandem_workflow_failures_total",
		metric.WithDescription("Total workflow runs that failed or aborted"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow failures counter: %w", err)
	}

	m.stepsFailed, err = meter.Int64Counter(
		"tandem_workflow_steps_failed_total",
		metric.WithDescription("Total failed workflow steps"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failed steps counter: %w", err)
	}

	m.parallelDuration, err = meter.Float64Histogram(
		"tandem_parallel_batch_duration_seconds",
		metric.WithDescription("Parallel batch duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parallel duration histogram: %w", err)
	}

	m.parallelWorkers, err = meter.Int64Histogram(
		"tandem_parallel_batch_workers",
		metric.WithDescription("Concurrency limit used per parallel batch"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parallel workers histogram: %w", err)
	}

	m.commandsTotal, err = meter.Int64Counter(
		"tandem_commands_total",
		metric.WithDescription("Total CLI commands executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create commands counter: %w", err)
	}

	m.commandErrors, err = meter.Int64Counter(
		"tandem_command_errors_total",
		metric.WithDescription("Total CLI commands that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create command errors counter: %w", err)
	}

	return m, nil
}

func (m *PrometheusMetrics) RecordInvocation(agent, action string) {
	if m == nil || m.invocationsTotal == nil {
		return
	}
	m.invocationsTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("action", action),
	))
}

func (m *PrometheusMetrics) RecordInvocationSuccess(agent, action string, duration time.Duration) {
	if m == nil || m.invocationDuration == nil {
		return
	}
	m.invocationDuration.Record(context.Background(), duration.Seconds(), metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("action", action),
	))
}

func (m *PrometheusMetrics) RecordInvocationError(agent, action string) {
	if m == nil || m.invocationErrors == nil {
		return
	}
	m.invocationErrors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("action", action),
	))
}

func (m *PrometheusMetrics) RecordWorkflowStart(workflow string, steps int) {
	if m == nil || m.workflowRuns == nil {
		return
	}
	m.workflowRuns.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.Int("steps", steps),
	))
}

func (m *PrometheusMetrics) RecordWorkflowComplete(workflow string, success bool, duration time.Duration, failedSteps int) {
	if m == nil || m.workflowDuration == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("workflow", workflow))

	m.workflowDuration.Record(context.Background(), duration.Seconds(), attrs)
	if !success && m.workflowFailures != nil {
		m.workflowFailures.Add(context.Background(), 1, attrs)
	}
	if failedSteps > 0 && m.stepsFailed != nil {
		m.stepsFailed.Add(context.Background(), int64(failedSteps), attrs)
	}
}

func (m *PrometheusMetrics) RecordParallelRun(workers int, duration time.Duration) {
	if m == nil || m.parallelDuration == nil {
		return
	}
	m.parallelDuration.Record(context.Background(), duration.Seconds())
	if m.parallelWorkers != nil {
		m.parallelWorkers.Record(context.Background(), int64(workers))
	}
}

func (m *PrometheusMetrics) RecordCommand(command string) {
	if m == nil || m.commandsTotal == nil {
		return
	}
	m.commandsTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("command", command),
	))
}

func (m *PrometheusMetrics) RecordCommandError(command string) {
	if m == nil || m.commandErrors == nil {
		return
	}
	m.commandErrors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("command", command),
	))
}

// Handler returns the HTTP handler exposing the Prometheus scrape endpoint.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.Handler()
}
