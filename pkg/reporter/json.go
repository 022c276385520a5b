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

	"github.com/kadirpekel/tandem/pkg/config"
	"github.com/kadirpekel/tandem/pkg/coordinator"
)

// JSONReporter renders every report as an indented JSON document, one per
// call, suitable for piping into other tools.
type JSONReporter struct {
	w       io.Writer
	verbose bool
}

func (r *JSONReporter) emit(v any) {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(r.w, `{"error":%q}`+"\n", err.Error())
	}
}

func (r *JSONReporter) Result(result *coordinator.Result) {
	r.emit(result)
}

func (r *JSONReporter) Results(results []coordinator.Result) {
	r.emit(results)
}

func (r *JSONReporter) WorkflowResult(res *coordinator.WorkflowResult) {
	r.emit(res)
}

func (r *JSONReporter) Plan(plan *coordinator.Plan) {
	r.emit(plan)
}

func (r *JSONReporter) Agents(agents []*config.AgentConfig) {
	r.emit(agents)
}

func (r *JSONReporter) Config(cfg *config.Config) {
	r.emit(cfg)
}

func (r *JSONReporter) Error(err error) {
	r.emit(map[string]string{"error": err.Error()})
}

func (r *JSONReporter) Success(message string) {
	r.emit(map[string]string{"success": message})
}
