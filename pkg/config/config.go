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

// Package config defines the configuration model for agents, coordinator
// settings, and workflow definitions, and loads them from YAML with
// environment variable expansion.
package config

import (
	"fmt"
	"time"

	"github.com/kadirpekel/tandem/pkg/observability"
)

const (
	// DefaultMaxParallelWorkers caps concurrent invocations in a parallel batch.
	DefaultMaxParallelWorkers = 3

	// DefaultTimeout bounds a single agent invocation.
	DefaultTimeout = 60 * time.Second
)

// Config is the top-level coordinator configuration.
type Config struct {
	// Agents maps agent names to their registration.
	Agents map[string]*AgentConfig `yaml:"agents,omitempty" json:"agents,omitempty" jsonschema:"title=Agents,description=Registered agents by name"`

	// Settings holds coordinator-wide execution settings.
	Settings SettingsConfig `yaml:"settings,omitempty" json:"settings,omitempty" jsonschema:"title=Settings,description=Coordinator execution settings"`

	// Output controls result reporting.
	Output OutputConfig `yaml:"output,omitempty" json:"output,omitempty" jsonschema:"title=Output,description=Result reporting settings"`
}

// AgentConfig registers a single external agent.
type AgentConfig struct {
	// Name is filled from the map key during defaulting.
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Agent Name,description=Unique identifier for this agent"`

	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description,description=Human-readable description of the agent's purpose"`

	// Command is the executable invoked for this agent.
	Command string `yaml:"command,omitempty" json:"command,omitempty" jsonschema:"title=Command,description=Path to the agent executable"`

	// Args are prepended to every invocation of the command.
	Args []string `yaml:"args,omitempty" json:"args,omitempty" jsonschema:"title=Arguments,description=Fixed arguments passed to the command"`

	// WorkDir is the working directory for the agent process.
	WorkDir string `yaml:"work_dir,omitempty" json:"work_dir,omitempty" jsonschema:"title=Working Directory,description=Working directory for the agent process"`

	// Enabled defaults to true when unset.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"title=Enabled,description=Whether the agent may be invoked,default=true"`

	// Timeout overrides the coordinator default for this agent.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Per-invocation timeout (e.g. 30s or 2m)"`

	// Env is merged over the coordinator's environment for the agent process.
	Env map[string]string `yaml:"env,omitempty" json:"env,omitempty" jsonschema:"title=Environment,description=Extra environment variables for the agent process"`
}

// IsEnabled reports whether the agent may be invoked.
func (a *AgentConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// SetDefaults applies default values.
func (a *AgentConfig) SetDefaults() {
	if a.Timeout < 0 {
		a.Timeout = 0
	}
}

// Validate checks the agent registration.
func (a *AgentConfig) Validate() error {
	if a.Command == "" {
		return fmt.Errorf("command is required")
	}
	return nil
}

// SettingsConfig holds coordinator-wide execution settings.
type SettingsConfig struct {
	// MaxParallelWorkers is the default concurrency limit for parallel batches.
	MaxParallelWorkers int `yaml:"max_parallel_workers,omitempty" json:"max_parallel_workers,omitempty" jsonschema:"title=Max Parallel Workers,description=Default concurrency limit for parallel batches,default=3"`

	// DefaultTimeout bounds invocations that set no timeout of their own.
	DefaultTimeout time.Duration `yaml:"default_timeout,omitempty" json:"default_timeout,omitempty" jsonschema:"title=Default Timeout,description=Default per-invocation timeout,default=60s"`

	// Metrics controls the Prometheus endpoint.
	Metrics observability.MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" jsonschema:"title=Metrics,description=Prometheus metrics settings"`
}

// SetDefaults applies default values.
func (s *SettingsConfig) SetDefaults() {
	if s.MaxParallelWorkers == 0 {
		s.MaxParallelWorkers = DefaultMaxParallelWorkers
	}
	if s.DefaultTimeout == 0 {
		s.DefaultTimeout = DefaultTimeout
	}
	s.Metrics.SetDefaults()
}

// Validate checks the settings.
func (s *SettingsConfig) Validate() error {
	if s.MaxParallelWorkers < 1 {
		return fmt.Errorf("max_parallel_workers must be at least 1, got %d", s.MaxParallelWorkers)
	}
	if s.DefaultTimeout < 0 {
		return fmt.Errorf("default_timeout must not be negative")
	}
	if err := s.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// OutputConfig controls how results are reported.
type OutputConfig struct {
	// Format selects the reporter: text, json, or table.
	Format string `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"title=Format,description=Result output format,enum=text,enum=json,enum=table,default=text"`

	// Verbose includes full result data in reports.
	Verbose bool `yaml:"verbose,omitempty" json:"verbose,omitempty" jsonschema:"title=Verbose,description=Include full result data in reports,default=false"`

	// SaveResults persists results to ResultsDir after each run.
	SaveResults bool `yaml:"save_results,omitempty" json:"save_results,omitempty" jsonschema:"title=Save Results,description=Persist run results as JSON files,default=false"`

	// ResultsDir is where saved results are written.
	ResultsDir string `yaml:"results_dir,omitempty" json:"results_dir,omitempty" jsonschema:"title=Results Directory,description=Directory for saved run results,default=./results"`
}

// SetDefaults applies default values.
func (o *OutputConfig) SetDefaults() {
	if o.Format == "" {
		o.Format = "text"
	}
	if o.ResultsDir == "" {
		o.ResultsDir = "./results"
	}
}

// Validate checks the output settings.
func (o *OutputConfig) Validate() error {
	switch o.Format {
	case "text", "json", "table":
		// valid
	default:
		return fmt.Errorf("invalid output format %q (must be text, json, or table)", o.Format)
	}
	return nil
}

// SetDefaults applies default values across the configuration.
func (c *Config) SetDefaults() {
	if c.Agents == nil {
		c.Agents = make(map[string]*AgentConfig)
	}
	for name, agent := range c.Agents {
		if agent == nil {
			agent = &AgentConfig{}
			c.Agents[name] = agent
		}
		if agent.Name == "" {
			agent.Name = name
		}
		agent.SetDefaults()
	}
	c.Settings.SetDefaults()
	c.Output.SetDefaults()
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	for name, agent := range c.Agents {
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("agent %q: %w", name, err)
		}
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// Agent returns the registration for the named agent, or an error when it is
// unknown or disabled.
func (c *Config) Agent(name string) (*AgentConfig, error) {
	agent, ok := c.Agents[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent: %s", name)
	}
	if !agent.IsEnabled() {
		return nil, fmt.Errorf("agent is disabled: %s", name)
	}
	return agent, nil
}

// AgentTimeout resolves the effective timeout for an agent, falling back to
// the coordinator default.
func (c *Config) AgentTimeout(agent *AgentConfig) time.Duration {
	if agent.Timeout > 0 {
		return agent.Timeout
	}
	return c.Settings.DefaultTimeout
}

// ResolveTimeouts fills unset step timeouts from the agent registration.
func (c *Config) ResolveTimeouts(wf *Workflow) {
	for i := range wf.Steps {
		step := &wf.Steps[i]
		if step.Timeout != 0 {
			continue
		}
		if agent, ok := c.Agents[step.Agent]; ok && agent != nil && agent.Timeout > 0 {
			step.Timeout = agent.Timeout
		}
	}
}

// DefaultConfig returns a minimal working configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
