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

package reporter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kadirpekel/tandem/pkg/config"
	"github.com/kadirpekel/tandem/pkg/coordinator"
)

// TableReporter renders results as bordered tables.
type TableReporter struct {
	w       io.Writer
	verbose bool
	color   bool
}

func (r *TableReporter) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func (r *TableReporter) Result(result *coordinator.Result) {
	r.Results([]coordinator.Result{*result})
}

func (r *TableReporter) Results(results []coordinator.Result) {
	t := r.newTable("AGENT", "ACTION", "STATUS", "DURATION", "ERROR")
	for i := range results {
		res := &results[i]
		t.Row(res.Agent, res.Action, statusLabel(res.Status),
			res.Duration.Round(timePrecision).String(), res.Error)
	}
	fmt.Fprintln(r.w, t.Render())
}

func (r *TableReporter) WorkflowResult(res *coordinator.WorkflowResult) {
	fmt.Fprintf(r.w, "workflow %s (run %s)\n", res.Workflow, res.RunID)
	r.Results(res.Results)

	fmt.Fprintf(r.w, "steps: %d completed, %d failed, total %s\n",
		res.StepsCompleted, res.StepsFailed, res.TotalDuration.Round(timePrecision))

	if len(res.GateChecks) == 0 {
		return
	}
	t := r.newTable("GATE", "THRESHOLD", "ACTUAL", "PASSED")
	for _, check := range res.GateChecks {
		actual := fmt.Sprintf("%.4g", check.Actual)
		if check.Missing {
			actual = "no data"
		}
		t.Row(check.Name, fmt.Sprintf("%.4g", check.Threshold), actual,
			strconv.FormatBool(check.Passed))
	}
	fmt.Fprintln(r.w, t.Render())
}

func (r *TableReporter) Plan(plan *coordinator.Plan) {
	fmt.Fprintf(r.w, "workflow %s (dry run)\n", plan.Workflow)
	t := r.newTable("#", "STEP", "AGENT", "ACTION", "DEPENDS ON", "ON ERROR")
	for i, step := range plan.Steps {
		t.Row(strconv.Itoa(i+1), step.Name, step.Agent, step.Action,
			strings.Join(step.DependsOn, ", "), step.OnError)
	}
	fmt.Fprintln(r.w, t.Render())
	if len(plan.Gates) > 0 {
		fmt.Fprintf(r.w, "gates: %s\n", strings.Join(plan.Gates, ", "))
	}
}

func (r *TableReporter) Agents(agents []*config.AgentConfig) {
	t := r.newTable("NAME", "ENABLED", "COMMAND", "DESCRIPTION")
	for _, agent := range agents {
		t.Row(agent.Name, strconv.FormatBool(agent.IsEnabled()), agent.Command, agent.Description)
	}
	fmt.Fprintln(r.w, t.Render())
}

func (r *TableReporter) Config(cfg *config.Config) {
	// Tabular config makes little sense; fall back to the text rendering.
	(&TextReporter{w: r.w, verbose: r.verbose, color: r.color}).Config(cfg)
}

func (r *TableReporter) Error(err error) {
	fmt.Fprintf(r.w, "error: %v\n", err)
}

func (r *TableReporter) Success(message string) {
	fmt.Fprintf(r.w, "✓ %s\n", message)
}
