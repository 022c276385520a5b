// Package tandem provides a declarative coordinator for agent invocations.
//
// Tandem runs registered agent executables against rate-limited parallel
// batches and dependency-ordered workflows, all described in plain YAML.
// Agents are ordinary processes: tandem writes a JSON request to stdin and
// reads a JSON response from stdout.
//
// # Quick Start
//
// Install tandem:
//
//	go install github.com/kadirpekel/tandem/cmd/tandem@latest
//
// Register your agents:
//
//	yaml
//	agents:
//	  research:
//	    description: "Research agent"
//	    command: "./agents/research"
//	    timeout: 2m
//
//	settings:
//	  max_parallel_workers: 3
//
// Invoke one directly:
//
//	tandem run research analyze -p topic=caching
//
// Or run a workflow with quality gates:
//
//	tandem workflow release.yaml
//
// # Using as Go Library
//
// Import the packages you need:
//
//	import (
//	    "github.com/kadirpekel/tandem/pkg/config"
//	    "github.com/kadirpekel/tandem/pkg/coordinator"
//	    "github.com/kadirpekel/tandem/pkg/invoker"
//	)
//
// # Key Features
//
//   - **Declarative YAML**: Agents, batches, and workflows without code
//   - **Parallel Batches**: Bounded concurrency with per-slot isolation
//   - **Workflows**: Dependency ordering with fail or continue policies
//   - **Quality Gates**: Threshold checks over aggregated step results
//   - **Process Agents**: Any executable speaking JSON over stdio
//
// # License
//
// AGPL-3.0 - See LICENSE.md for details.
package tandem
