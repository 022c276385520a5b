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

// Package reporter renders invocation and workflow results for the terminal
// in text, JSON, and table formats.
package reporter

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/kadirpekel/tandem/pkg/config"
	"github.com/kadirpekel/tandem/pkg/coordinator"
)

// Reporter renders execution outcomes to the user.
type Reporter interface {
	// Result reports a single invocation result.
	Result(result *coordinator.Result)

	// Results reports the results of a parallel batch.
	Results(results []coordinator.Result)

	// WorkflowResult reports an aggregated workflow run.
	WorkflowResult(res *coordinator.WorkflowResult)

	// Plan reports a dry-run execution plan.
	Plan(plan *coordinator.Plan)

	// Agents reports the registered agents.
	Agents(agents []*config.AgentConfig)

	// Config reports a configuration document.
	Config(cfg *config.Config)

	// Error reports a failure.
	Error(err error)

	// Success reports a confirmation message.
	Success(message string)
}

// New creates a Reporter for the given format: text, json, or table.
func New(format string, w io.Writer, verbose bool) (Reporter, error) {
	switch format {
	case "", "text":
		return &TextReporter{w: w, verbose: verbose, color: isTerminalWriter(w)}, nil
	case "json":
		return &JSONReporter{w: w, verbose: verbose}, nil
	case "table":
		return &TableReporter{w: w, verbose: verbose, color: isTerminalWriter(w)}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// timePrecision rounds durations for display.
const timePrecision = time.Millisecond

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func statusLabel(status coordinator.Status) string {
	if status == coordinator.StatusSuccess {
		return "ok"
	}
	return "error"
}
