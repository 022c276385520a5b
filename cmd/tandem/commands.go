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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/kadirpekel/tandem/pkg/config"
	"github.com/kadirpekel/tandem/pkg/coordinator"
	"github.com/kadirpekel/tandem/pkg/invoker"
	"github.com/kadirpekel/tandem/pkg/observability"
	"github.com/kadirpekel/tandem/pkg/reporter"
	"github.com/kadirpekel/tandem/pkg/server"
)

// runtime bundles everything a command needs after configuration loading.
type runtime struct {
	cfg     *config.Config
	metrics observability.Recorder
	exec    *coordinator.Executor
	coord   *coordinator.Coordinator
	rep     reporter.Reporter
	quiet   bool
}

// notice prints a confirmation unless quiet output was requested.
func (rt *runtime) notice(message string) {
	if rt.quiet {
		return
	}
	rt.rep.Success(message)
}

func setup(cli *CLI) (*runtime, error) {
	cfg, err := config.LoadConfig(cli.ConfigPath)
	if err != nil {
		return nil, err
	}

	format := cli.Format
	if format == "" {
		format = cfg.Output.Format
	}
	rep, err := reporter.New(format, os.Stdout, cli.Verbose || cfg.Output.Verbose)
	if err != nil {
		return nil, err
	}

	var metrics observability.Recorder = observability.NoopMetrics{}
	if cfg.Settings.Metrics.Enabled {
		pm, err := observability.InitMetrics(context.Background(), cfg.Settings.Metrics)
		if err != nil {
			slog.Warn("metrics disabled", "error", err)
		} else {
			metrics = pm
		}
	}

	inv, err := invoker.NewProcessInvoker(cfg)
	if err != nil {
		return nil, err
	}

	exec, err := coordinator.NewExecutor(coordinator.ExecutorConfig{
		Invoker:        inv,
		Metrics:        metrics,
		DefaultTimeout: cfg.Settings.DefaultTimeout,
	})
	if err != nil {
		return nil, err
	}

	coord, err := coordinator.New(coordinator.Config{
		Executor: exec,
		Metrics:  metrics,
	})
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, metrics: metrics, exec: exec, coord: coord, rep: rep, quiet: cli.Quiet}, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()
	return ctx, cancel
}

func (rt *runtime) recordOutcome(command string, err error) {
	rt.metrics.RecordCommand(command)
	if err != nil {
		rt.metrics.RecordCommandError(command)
	}
}

// RunCmd invokes a single agent action.
type RunCmd struct {
	Agent  string `arg:"" help:"Registered agent name."`
	Action string `arg:"" help:"Action to request."`

	Param      map[string]string `short:"p" help:"Action parameter (key=value, repeatable)."`
	ParamsJSON string            `name:"params-json" help:"Action parameters as a JSON object."`
	Timeout    time.Duration     `help:"Invocation timeout (overrides agent and coordinator defaults)."`
	Save       bool              `help:"Persist the result to the results directory."`
}

func (c *RunCmd) Run(cli *CLI) error {
	rt, err := setup(cli)
	if err != nil {
		return err
	}

	params, err := c.buildParams()
	if err != nil {
		return err
	}

	agentCfg, err := rt.cfg.Agent(c.Agent)
	if err != nil {
		return err
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = rt.cfg.AgentTimeout(agentCfg)
	}

	ctx, cancel := signalContext()
	defer cancel()

	result := rt.exec.Execute(ctx, coordinator.Invocation{
		Agent:   c.Agent,
		Action:  c.Action,
		Params:  params,
		Timeout: timeout,
	})
	rt.rep.Result(&result)

	if c.Save || rt.cfg.Output.SaveResults {
		path, err := reporter.SaveResults(rt.cfg.Output.ResultsDir, []coordinator.Result{result})
		if err != nil {
			rt.rep.Error(err)
		} else {
			rt.notice("results saved to " + path)
		}
	}

	var runErr error
	if result.Status != coordinator.StatusSuccess {
		runErr = fmt.Errorf("invocation failed: %s", result.Error)
	}
	rt.recordOutcome("run", runErr)
	return runErr
}

func (c *RunCmd) buildParams() (map[string]any, error) {
	params := make(map[string]any, len(c.Param))
	if c.ParamsJSON != "" {
		if err := json.Unmarshal([]byte(c.ParamsJSON), &params); err != nil {
			return nil, fmt.Errorf("invalid --params-json: %w", err)
		}
	}
	for k, v := range c.Param {
		params[k] = v
	}
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}

// ParallelCmd executes a batch of invocations concurrently. The batch comes
// either from a definition file or from --agents with one shared action.
type ParallelCmd struct {
	File    string `arg:"" optional:"" help:"Batch definition file (YAML or JSON)." type:"path"`
	Agents  string `short:"a" help:"Comma-separated agent names to invoke instead of a batch file."`
	Action  string `help:"Action requested from each --agents agent." default:"run"`
	Path    string `short:"p" help:"Path parameter passed to each --agents agent." default:"."`
	Workers int    `short:"w" help:"Concurrency limit (defaults to settings.max_parallel_workers)."`
	Save    bool   `help:"Persist results to the results directory."`
}

func (c *ParallelCmd) Run(cli *CLI) error {
	rt, err := setup(cli)
	if err != nil {
		return err
	}

	invs, err := c.buildInvocations(rt.cfg)
	if err != nil {
		return err
	}

	workers := c.Workers
	if workers == 0 {
		workers = rt.cfg.Settings.MaxParallelWorkers
	}

	ctx, cancel := signalContext()
	defer cancel()

	results := rt.coord.ExecuteParallel(ctx, invs, workers)
	rt.rep.Results(results)

	if c.Save || rt.cfg.Output.SaveResults {
		path, err := reporter.SaveResults(rt.cfg.Output.ResultsDir, results)
		if err != nil {
			rt.rep.Error(err)
		} else {
			rt.notice("results saved to " + path)
		}
	}

	var runErr error
	for i := range results {
		if results[i].Status != coordinator.StatusSuccess {
			runErr = fmt.Errorf("%d of %d invocations failed", countErrors(results), len(results))
			break
		}
	}
	rt.recordOutcome("parallel", runErr)
	return runErr
}

func (c *ParallelCmd) buildInvocations(cfg *config.Config) ([]coordinator.Invocation, error) {
	if (c.File == "") == (c.Agents == "") {
		return nil, fmt.Errorf("either a batch file or --agents must be given")
	}

	resolveTimeout := func(agent string) time.Duration {
		if agentCfg, ok := cfg.Agents[agent]; ok && agentCfg != nil {
			return cfg.AgentTimeout(agentCfg)
		}
		return 0
	}

	if c.Agents != "" {
		var invs []coordinator.Invocation
		for _, name := range strings.Split(c.Agents, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			invs = append(invs, coordinator.Invocation{
				Agent:   name,
				Action:  c.Action,
				Params:  map[string]any{"path": c.Path},
				Timeout: resolveTimeout(name),
			})
		}
		if len(invs) == 0 {
			return nil, fmt.Errorf("--agents names no agents")
		}
		return invs, nil
	}

	batch, err := config.LoadBatch(c.File)
	if err != nil {
		return nil, err
	}
	invs := make([]coordinator.Invocation, 0, len(batch.Invocations))
	for _, bi := range batch.Invocations {
		timeout := bi.Timeout
		if timeout == 0 {
			timeout = resolveTimeout(bi.Agent)
		}
		invs = append(invs, coordinator.Invocation{
			Agent:   bi.Agent,
			Action:  bi.Action,
			Params:  bi.Params,
			Timeout: timeout,
		})
	}
	return invs, nil
}

func countErrors(results []coordinator.Result) int {
	n := 0
	for i := range results {
		if results[i].Status != coordinator.StatusSuccess {
			n++
		}
	}
	return n
}

// WorkflowCmd executes a workflow definition.
type WorkflowCmd struct {
	File   string `arg:"" help:"Workflow definition file (YAML or JSON)." type:"path"`
	Strict bool   `help:"Abort on the first failure regardless of per-step on_error."`
	DryRun bool   `name:"dry-run" help:"Validate and show the execution plan without invoking agents."`
	Save   bool   `help:"Persist the workflow result to the results directory."`
}

func (c *WorkflowCmd) Run(cli *CLI) error {
	rt, err := setup(cli)
	if err != nil {
		return err
	}

	wf, err := config.LoadWorkflow(c.File)
	if err != nil {
		return err
	}
	rt.cfg.ResolveTimeouts(wf)

	if c.DryRun {
		rt.rep.Plan(coordinator.PlanWorkflow(wf))
		rt.recordOutcome("workflow", nil)
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	var opts []coordinator.RunOption
	if c.Strict {
		opts = append(opts, coordinator.WithStrict())
	}

	res, err := rt.coord.ExecuteWorkflow(ctx, wf, opts...)
	if err != nil {
		var wfErr *coordinator.WorkflowError
		if errors.As(err, &wfErr) && len(wfErr.Results) > 0 {
			rt.rep.Results(wfErr.Results)
		}
		rt.rep.Error(err)
		rt.recordOutcome("workflow", err)
		return err
	}

	rt.rep.WorkflowResult(res)

	if c.Save || rt.cfg.Output.SaveResults {
		path, err := reporter.SaveWorkflowResult(rt.cfg.Output.ResultsDir, res)
		if err != nil {
			rt.rep.Error(err)
		} else {
			rt.notice("results saved to " + path)
		}
	}

	var runErr error
	switch {
	case res.StepsFailed > 0:
		runErr = fmt.Errorf("workflow %s finished with %d failed steps", res.Workflow, res.StepsFailed)
	case !res.QualityGatesPassed:
		runErr = fmt.Errorf("workflow %s failed quality gates", res.Workflow)
	}
	rt.recordOutcome("workflow", runErr)
	return runErr
}

// ListCmd lists registered agents.
type ListCmd struct{}

func (c *ListCmd) Run(cli *CLI) error {
	rt, err := setup(cli)
	if err != nil {
		return err
	}

	agents := make([]*config.AgentConfig, 0, len(rt.cfg.Agents))
	for _, agent := range rt.cfg.Agents {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })

	rt.rep.Agents(agents)
	rt.recordOutcome("list", nil)
	return nil
}

// ConfigCmd groups configuration subcommands.
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" help:"Print the effective configuration."`
	Validate ConfigValidateCmd `cmd:"" help:"Validate a configuration or workflow file."`
	Init     ConfigInitCmd     `cmd:"" help:"Write a starter configuration file."`
}

// ConfigShowCmd prints the effective configuration.
type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(cli *CLI) error {
	rt, err := setup(cli)
	if err != nil {
		return err
	}
	rt.rep.Config(rt.cfg)
	return nil
}

// ConfigValidateCmd validates a configuration or workflow file.
type ConfigValidateCmd struct {
	Path     string `arg:"" optional:"" help:"File to validate (defaults to --config)." type:"path"`
	Workflow bool   `help:"Treat the file as a workflow definition."`
}

func (c *ConfigValidateCmd) Run(cli *CLI) error {
	path := c.Path
	if path == "" {
		path = cli.ConfigPath
	}

	rep, err := reporter.New(cli.Format, os.Stdout, cli.Verbose)
	if err != nil {
		return err
	}

	if c.Workflow {
		if _, err := config.LoadWorkflow(path); err != nil {
			return err
		}
		rep.Success("workflow is valid: " + path)
		return nil
	}

	if _, err := config.LoadConfig(path); err != nil {
		return err
	}
	rep.Success("config is valid: " + path)
	return nil
}

// ConfigInitCmd writes a starter configuration file.
type ConfigInitCmd struct {
	Output           string `short:"o" help:"Destination path." type:"path" default:"tandem.yaml"`
	Force            bool   `help:"Overwrite an existing file."`
	ExampleWorkflows bool   `name:"example-workflows" help:"Also write an example workflow under workflows/."`
}

const starterConfig = `# tandem coordinator configuration
agents:
  pm:
    description: Project management agent
    command: ./agents/pm
    timeout: 2m
  research:
    description: Research agent
    command: ./agents/research
  index:
    description: Code indexing agent
    command: ./agents/index
    enabled: true

settings:
  max_parallel_workers: 3
  default_timeout: 60s
  metrics:
    enabled: false
    port: 9090

output:
  format: text
  save_results: false
  results_dir: ./results
`

func (c *ConfigInitCmd) Run(cli *CLI) error {
	rep, err := reporter.New(cli.Format, os.Stdout, cli.Verbose)
	if err != nil {
		return err
	}

	if !c.Force {
		if _, err := os.Stat(c.Output); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", c.Output)
		}
	}
	if err := os.WriteFile(c.Output, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	rep.Success("wrote " + c.Output)

	if c.ExampleWorkflows {
		if err := os.MkdirAll("workflows", 0o755); err != nil {
			return fmt.Errorf("failed to create workflows dir: %w", err)
		}
		path := filepath.Join("workflows", "example.yaml")
		if err := os.WriteFile(path, []byte(exampleWorkflow), 0o644); err != nil {
			return fmt.Errorf("failed to write example workflow: %w", err)
		}
		rep.Success("wrote " + path)
	}
	return nil
}

const exampleWorkflow = `# Example tandem workflow
name: code-quality
description: Comprehensive code quality check
steps:
  - name: track-debt
    agent: pm
    action: track_tasks
    params:
      path: ./src
    on_error: continue
  - name: analyze-docs
    agent: research
    action: analyze_document
    params:
      path: ./README.md

quality_gates:
  max_fixmes: 10
  min_documentation_score: 70
`

// MetricsCmd serves the Prometheus metrics endpoint until interrupted.
type MetricsCmd struct {
	Port int    `help:"Override the configured metrics port."`
	Host string `help:"Override the configured metrics host."`
}

func (c *MetricsCmd) Run(cli *CLI) error {
	cfg, err := config.LoadConfig(cli.ConfigPath)
	if err != nil {
		return err
	}

	metricsCfg := cfg.Settings.Metrics
	metricsCfg.Enabled = true
	if c.Port != 0 {
		metricsCfg.Port = c.Port
	}
	if c.Host != "" {
		metricsCfg.Host = c.Host
	}

	ctx, cancel := signalContext()
	defer cancel()

	pm, err := observability.InitMetrics(ctx, metricsCfg)
	if err != nil {
		return err
	}

	return server.New(metricsCfg, pm).Run(ctx)
}
