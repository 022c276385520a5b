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
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kadirpekel/tandem/pkg/config"
	"github.com/kadirpekel/tandem/pkg/coordinator"
)

// TextReporter renders results as human-readable lines, colored when the
// output is a terminal.
type TextReporter struct {
	w       io.Writer
	verbose bool
	color   bool
}

func (r *TextReporter) styles() (ok, fail, label lipgloss.Style) {
	if !r.color {
		return lipgloss.NewStyle(), lipgloss.NewStyle(), lipgloss.NewStyle()
	}
	ok = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	fail = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	label = lipgloss.NewStyle().Bold(true)
	return ok, fail, label
}

func (r *TextReporter) Result(result *coordinator.Result) {
	ok, fail, _ := r.styles()

	mark := ok.Render("✓")
	if result.Status != coordinator.StatusSuccess {
		mark = fail.Render("✗")
	}
	fmt.Fprintf(r.w, "%s %s/%s (%s)\n", mark, result.Agent, result.Action, result.Duration.Round(timePrecision))

	if result.Error != "" {
		fmt.Fprintf(r.w, "  error: %s\n", result.Error)
	}
	if r.verbose && len(result.Data) > 0 {
		r.printData(result.Data, "  ")
	}
}

func (r *TextReporter) Results(results []coordinator.Result) {
	succeeded := 0
	for i := range results {
		r.Result(&results[i])
		if results[i].Status == coordinator.StatusSuccess {
			succeeded++
		}
	}
	_, _, label := r.styles()
	fmt.Fprintf(r.w, "%s %d/%d succeeded\n", label.Render("batch:"), succeeded, len(results))
}

func (r *TextReporter) WorkflowResult(res *coordinator.WorkflowResult) {
	ok, fail, label := r.styles()

	fmt.Fprintf(r.w, "%s %s (run %s)\n", label.Render("workflow:"), res.Workflow, res.RunID)
	for i := range res.Results {
		r.Result(&res.Results[i])
	}

	fmt.Fprintf(r.w, "%s %d completed, %d failed, total %s\n",
		label.Render("steps:"), res.StepsCompleted, res.StepsFailed,
		res.TotalDuration.Round(timePrecision))

	if len(res.GateChecks) > 0 {
		for _, check := range res.GateChecks {
			mark := ok.Render("✓")
			detail := fmt.Sprintf("%.4g (threshold %.4g)", check.Actual, check.Threshold)
			if check.Missing {
				detail = "no data"
			}
			if !check.Passed {
				mark = fail.Render("✗")
			}
			fmt.Fprintf(r.w, "%s gate %s: %s\n", mark, check.Name, detail)
		}
		if res.QualityGatesPassed {
			fmt.Fprintf(r.w, "%s\n", ok.Render("quality gates passed"))
		} else {
			fmt.Fprintf(r.w, "%s\n", fail.Render("quality gates failed"))
		}
	}
}

func (r *TextReporter) Plan(plan *coordinator.Plan) {
	_, _, label := r.styles()

	fmt.Fprintf(r.w, "%s %s (dry run)\n", label.Render("workflow:"), plan.Workflow)
	for i, step := range plan.Steps {
		fmt.Fprintf(r.w, "%2d. %s: %s/%s", i+1, step.Name, step.Agent, step.Action)
		if len(step.DependsOn) > 0 {
			fmt.Fprintf(r.w, " (after %s)", strings.Join(step.DependsOn, ", "))
		}
		if step.OnError == string(config.OnErrorContinue) {
			fmt.Fprint(r.w, " [continue on error]")
		}
		fmt.Fprintln(r.w)
	}
	if len(plan.Gates) > 0 {
		fmt.Fprintf(r.w, "%s %s\n", label.Render("gates:"), strings.Join(plan.Gates, ", "))
	}
}

func (r *TextReporter) Agents(agents []*config.AgentConfig) {
	ok, fail, _ := r.styles()
	for _, agent := range agents {
		state := ok.Render("enabled")
		if !agent.IsEnabled() {
			state = fail.Render("disabled")
		}
		fmt.Fprintf(r.w, "%s (%s) %s\n", agent.Name, state, agent.Description)
	}
}

func (r *TextReporter) Config(cfg *config.Config) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		r.Error(fmt.Errorf("failed to render config: %w", err))
		return
	}
	fmt.Fprintf(r.w, "%s\n", data)
}

func (r *TextReporter) Error(err error) {
	_, fail, _ := r.styles()
	fmt.Fprintf(r.w, "%s %v\n", fail.Render("error:"), err)
}

func (r *TextReporter) Success(message string) {
	ok, _, _ := r.styles()
	fmt.Fprintf(r.w, "%s %s\n", ok.Render("✓"), message)
}

func (r *TextReporter) printData(data map[string]any, indent string) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(r.w, "%s%s: %v\n", indent, k, data[k])
	}
}
