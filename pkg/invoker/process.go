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

// Package invoker bridges the coordinator to external agent processes.
// Agents are standalone executables that read a single JSON request from
// stdin and write a single JSON response to stdout.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kadirpekel/tandem/pkg/config"
	"github.com/kadirpekel/tandem/pkg/coordinator"
)

// request is the JSON document written to the agent's stdin.
type request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// ProcessInvoker spawns a registered agent's command per invocation and
// exchanges one request/response pair over the process's standard streams.
type ProcessInvoker struct {
	cfg *config.Config
}

// NewProcessInvoker creates a ProcessInvoker over the given configuration.
func NewProcessInvoker(cfg *config.Config) (*ProcessInvoker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return &ProcessInvoker{cfg: cfg}, nil
}

var _ coordinator.Invoker = (*ProcessInvoker)(nil)

// Invoke runs the agent's command with the request on stdin and parses the
// response from stdout. The process is killed when ctx expires. Unknown and
// disabled agents fail without spawning anything.
func (p *ProcessInvoker) Invoke(ctx context.Context, agent, action string, params map[string]any) (*coordinator.Response, error) {
	agentCfg, err := p.cfg.Agent(agent)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(request{Action: action, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, agentCfg.Command, agentCfg.Args...)
	cmd.Dir = agentCfg.WorkDir
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = mergeEnv(os.Environ(), agentCfg.Env)
	// Do not wait on grandchildren that inherited the pipes after the
	// agent process itself is killed.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Surface the deadline rather than the kill signal so the caller
		// can tell a timeout apart from an agent crash.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail := strings.TrimSpace(stderr.String())
			if detail == "" {
				detail = err.Error()
			}
			return nil, fmt.Errorf("agent %s exited with code %d: %s", agent, exitErr.ExitCode(), detail)
		}
		return nil, fmt.Errorf("failed to run agent %s: %w", agent, err)
	}

	var resp coordinator.Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("invalid response from agent %s: %w", agent, err)
	}
	return &resp, nil
}

// mergeEnv overlays extra variables on a base environment.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key := kv[:strings.IndexByte(kv, '=')+1]
		if key == "" {
			continue
		}
		if _, shadowed := extra[key[:len(key)-1]]; shadowed {
			continue
		}
		merged = append(merged, kv)
	}
	for k, v := range extra {
		merged = append(merged, k+"="+v)
	}
	return merged
}
