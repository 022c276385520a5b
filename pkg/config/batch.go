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
	"os"
	"time"
)

// Batch is a file-defined set of invocations executed in parallel.
type Batch struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Batch Name,description=Optional identifier for this batch"`

	Invocations []BatchInvocation `yaml:"invocations,omitempty" json:"invocations,omitempty" jsonschema:"title=Invocations,description=Invocations executed concurrently"`
}

// BatchInvocation is a single invocation within a batch.
type BatchInvocation struct {
	Agent string `yaml:"agent,omitempty" json:"agent,omitempty" jsonschema:"title=Agent,description=Registered agent to invoke"`

	Action string `yaml:"action,omitempty" json:"action,omitempty" jsonschema:"title=Action,description=Action requested from the agent"`

	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty" jsonschema:"title=Parameters,description=Action parameters passed to the agent"`

	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Per-invocation timeout"`
}

// Validate checks the batch definition.
func (b *Batch) Validate() error {
	if len(b.Invocations) == 0 {
		return fmt.Errorf("batch has no invocations")
	}
	for i, inv := range b.Invocations {
		if inv.Agent == "" {
			return fmt.Errorf("invocation %d: agent is required", i)
		}
		if inv.Action == "" {
			return fmt.Errorf("invocation %d: action is required", i)
		}
	}
	return nil
}

// LoadBatch reads, parses, and processes a batch definition file.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	rawMap, err := parseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch: %w", err)
	}

	expandedMap := expandEnvVars(rawMap)

	batch := &Batch{}
	if err := decodeMap(expandedMap, batch); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}

	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("batch validation failed: %w", err)
	}

	return batch, nil
}
