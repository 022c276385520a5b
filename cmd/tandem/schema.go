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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/kadirpekel/tandem/pkg/config"
)

// SchemaCmd generates JSON Schema for tandem configuration files.
// Output is written to stdout so it can be redirected into editors and
// validation tooling.
type SchemaCmd struct {
	// Workflow emits the workflow definition schema instead of the
	// coordinator configuration schema.
	Workflow bool `help:"Generate the workflow definition schema."`

	// Compact enables compact JSON output (no indentation)
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

// Run executes the schema generation command.
func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var schema *jsonschema.Schema
	if c.Workflow {
		schema = reflector.Reflect(&config.Workflow{})
		schema.ID = "https://tandem.dev/schemas/workflow.json"
		schema.Title = "Tandem Workflow Schema"
		schema.Description = "Workflow definition schema for the tandem coordinator"
	} else {
		schema = reflector.Reflect(&config.Config{})
		schema.ID = "https://tandem.dev/schemas/config.json"
		schema.Title = "Tandem Configuration Schema"
		schema.Description = "Coordinator configuration schema for tandem"
	}
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
