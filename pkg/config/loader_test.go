package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "tandem.yaml", `
agents:
  pm:
    description: Project management agent
    command: ./agents/pm
    timeout: 2m
  research:
    command: ./agents/research
    enabled: false
settings:
  max_parallel_workers: 5
  default_timeout: 90s
output:
  format: json
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(cfg.Agents))
	}
	pm := cfg.Agents["pm"]
	if pm.Name != "pm" {
		t.Errorf("expected agent name filled from map key, got %q", pm.Name)
	}
	if pm.Timeout != 2*time.Minute {
		t.Errorf("expected 2m timeout, got %s", pm.Timeout)
	}
	if !pm.IsEnabled() {
		t.Error("expected pm enabled by default")
	}
	if cfg.Agents["research"].IsEnabled() {
		t.Error("expected research disabled")
	}
	if cfg.Settings.MaxParallelWorkers != 5 {
		t.Errorf("expected 5 workers, got %d", cfg.Settings.MaxParallelWorkers)
	}
	if cfg.Settings.DefaultTimeout != 90*time.Second {
		t.Errorf("expected 90s default timeout, got %s", cfg.Settings.DefaultTimeout)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("expected json format, got %s", cfg.Output.Format)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeFile(t, "tandem.yaml", `
agents:
  pm:
    command: ./agents/pm
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Settings.MaxParallelWorkers != DefaultMaxParallelWorkers {
		t.Errorf("expected default workers, got %d", cfg.Settings.MaxParallelWorkers)
	}
	if cfg.Settings.DefaultTimeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %s", cfg.Settings.DefaultTimeout)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("expected text format, got %s", cfg.Output.Format)
	}
	if cfg.Settings.Metrics.Port != 9090 {
		t.Errorf("expected default metrics port, got %d", cfg.Settings.Metrics.Port)
	}
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("AGENTS_HOME", "/opt/agents")

	path := writeFile(t, "tandem.yaml", `
agents:
  pm:
    command: ${AGENTS_HOME}/pm
  research:
    command: ${RESEARCH_BIN:-./agents/research}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if got := cfg.Agents["pm"].Command; got != "/opt/agents/pm" {
		t.Errorf("expected expanded command, got %q", got)
	}
	if got := cfg.Agents["research"].Command; got != "./agents/research" {
		t.Errorf("expected default fallback, got %q", got)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing command",
			yaml: "agents:\n  pm:\n    description: no command\n",
		},
		{
			name: "bad output format",
			yaml: "output:\n  format: xml\n",
		},
		{
			name: "zero workers rejected",
			yaml: "settings:\n  max_parallel_workers: -1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "tandem.yaml", tt.yaml)
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/tandem.yaml"); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestConfig_Agent(t *testing.T) {
	disabled := false
	cfg := &Config{
		Agents: map[string]*AgentConfig{
			"pm":  {Name: "pm", Command: "./pm"},
			"off": {Name: "off", Command: "./off", Enabled: &disabled},
		},
	}

	if _, err := cfg.Agent("pm"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := cfg.Agent("missing"); err == nil {
		t.Error("expected error for unknown agent")
	}
	if _, err := cfg.Agent("off"); err == nil {
		t.Error("expected error for disabled agent")
	}
}

func TestConfig_ResolveTimeouts(t *testing.T) {
	cfg := &Config{
		Agents: map[string]*AgentConfig{
			"pm": {Name: "pm", Command: "./pm", Timeout: 45 * time.Second},
		},
	}
	wf := &Workflow{
		Name: "flow",
		Steps: []WorkflowStep{
			{Name: "a", Agent: "pm", Action: "x"},
			{Name: "b", Agent: "pm", Action: "y", Timeout: 5 * time.Second},
		},
	}

	cfg.ResolveTimeouts(wf)

	if wf.Steps[0].Timeout != 45*time.Second {
		t.Errorf("expected agent timeout applied, got %s", wf.Steps[0].Timeout)
	}
	if wf.Steps[1].Timeout != 5*time.Second {
		t.Errorf("step timeout must win, got %s", wf.Steps[1].Timeout)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := DefaultConfig()
	cfg.Agents["pm"] = &AgentConfig{Name: "pm", Command: "./pm"}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if loaded.Agents["pm"].Command != "./pm" {
		t.Errorf("round trip lost agent command: %+v", loaded.Agents["pm"])
	}
}
