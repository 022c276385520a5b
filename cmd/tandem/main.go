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

// Command tandem coordinates external agent invocations, either as
// rate-limited parallel batches or as dependency-ordered workflows with
// quality gates.
//
// Usage:
//
//	tandem run pm analyze --config tandem.yaml
//	tandem parallel batch.yaml --workers 4
//	tandem workflow release.yaml --strict
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/tandem"
	"github.com/kadirpekel/tandem/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Run      RunCmd      `cmd:"" help:"Invoke a single agent action."`
	Parallel ParallelCmd `cmd:"" help:"Execute a batch of invocations concurrently."`
	Workflow WorkflowCmd `cmd:"" help:"Execute a workflow definition."`
	List     ListCmd     `cmd:"" help:"List registered agents."`
	Config   ConfigCmd   `cmd:"" help:"Inspect and manage configuration."`
	Metrics  MetricsCmd  `cmd:"" help:"Serve the Prometheus metrics endpoint."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for configuration files."`

	ConfigPath string `name:"config" short:"c" help:"Path to config file." type:"path" default:"tandem.yaml"`
	Format     string `short:"f" help:"Output format (text, json, table)."`
	Verbose    bool   `short:"v" help:"Include full result data in reports."`
	Quiet      bool   `short:"q" help:"Quiet output (errors only)."`
	LogLevel   string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile    string `help:"Log file path (empty = stderr)."`
	LogFormat  string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(tandem.GetVersion().String())
	return nil
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("tandem"),
		kong.Description("tandem - Agent Invocation Coordinator"),
		kong.UsageOnError(),
	)

	logLevel := cli.LogLevel
	if cli.Quiet {
		logLevel = "error"
	}
	cleanup, err := initLoggerFromCLI(logLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
