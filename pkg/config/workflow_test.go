package config

import (
	"testing"
	"time"
)

func validSteps() []WorkflowStep {
	return []WorkflowStep{
		{Name: "plan", Agent: "pm", Action: "analyze", OnError: OnErrorFail},
		{Name: "gather", Agent: "research", Action: "collect", DependsOn: []string{"plan"}, OnError: OnErrorFail},
	}
}

func TestWorkflow_Validate(t *testing.T) {
	wf := &Workflow{Name: "release", Steps: validSteps()}
	if err := wf.Validate(); err != nil {
		t.Fatalf("expected valid workflow, got %v", err)
	}
}

func TestWorkflow_Validate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Workflow)
	}{
		{"missing name", func(w *Workflow) { w.Name = "" }},
		{"no steps", func(w *Workflow) { w.Steps = nil }},
		{"duplicate step names", func(w *Workflow) { w.Steps[1].Name = "plan" }},
		{"missing agent", func(w *Workflow) { w.Steps[0].Agent = "" }},
		{"missing action", func(w *Workflow) { w.Steps[0].Action = "" }},
		{"self dependency", func(w *Workflow) { w.Steps[0].DependsOn = []string{"plan"} }},
		{"forward dependency", func(w *Workflow) { w.Steps[0].DependsOn = []string{"gather"} }},
		{"unknown dependency", func(w *Workflow) { w.Steps[1].DependsOn = []string{"ghost"} }},
		{"bad policy", func(w *Workflow) { w.Steps[0].OnError = "retry" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := &Workflow{Name: "release", Steps: validSteps()}
			tt.mutate(wf)
			if err := wf.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWorkflow_SetDefaults(t *testing.T) {
	wf := &Workflow{Name: "w", Steps: []WorkflowStep{{Name: "a", Agent: "pm", Action: "x"}}}
	wf.SetDefaults()
	if wf.Steps[0].OnError != OnErrorFail {
		t.Errorf("expected default policy fail, got %q", wf.Steps[0].OnError)
	}
}

func TestQualityGates_Validate(t *testing.T) {
	bad := -1
	gates := &QualityGates{MaxFixmes: &bad}
	if err := gates.Validate(); err == nil {
		t.Error("expected error for negative max_fixmes")
	}

	over := 120.0
	gates = &QualityGates{MaxDeadCodePercent: &over}
	if err := gates.Validate(); err == nil {
		t.Error("expected error for dead code percent above 100")
	}
}

func TestLoadWorkflow(t *testing.T) {
	path := writeFile(t, "release.yaml", `
name: release
description: Release readiness checks
steps:
  - name: plan
    agent: pm
    action: analyze
    params:
      scope: full
  - name: gather
    agent: research
    action: collect
    depends_on: [plan]
    on_error: continue
    timeout: 30s
quality_gates:
  max_fixmes: 5
  min_documentation_score: 80
`)

	wf, err := LoadWorkflow(path)
	if err != nil {
		t.Fatalf("failed to load workflow: %v", err)
	}

	if wf.Name != "release" || len(wf.Steps) != 2 {
		t.Fatalf("unexpected workflow: %+v", wf)
	}
	if wf.Steps[0].OnError != OnErrorFail {
		t.Errorf("expected defaulted policy, got %q", wf.Steps[0].OnError)
	}
	if wf.Steps[1].OnError != OnErrorContinue {
		t.Errorf("expected continue policy, got %q", wf.Steps[1].OnError)
	}
	if wf.Steps[1].Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", wf.Steps[1].Timeout)
	}
	if wf.Steps[0].Params["scope"] != "full" {
		t.Errorf("expected params decoded, got %v", wf.Steps[0].Params)
	}
	if wf.QualityGates == nil || wf.QualityGates.MaxFixmes == nil || *wf.QualityGates.MaxFixmes != 5 {
		t.Errorf("expected quality gates decoded, got %+v", wf.QualityGates)
	}
}

func TestLoadWorkflow_RejectsForwardDependency(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
name: bad
steps:
  - name: first
    agent: pm
    action: x
    depends_on: [second]
  - name: second
    agent: pm
    action: y
`)

	if _, err := LoadWorkflow(path); err == nil {
		t.Fatal("expected validation error for forward dependency")
	}
}

func TestLoadBatch(t *testing.T) {
	path := writeFile(t, "batch.yaml", `
name: nightly
invocations:
  - agent: pm
    action: analyze
  - agent: research
    action: collect
    timeout: 45s
    params:
      depth: 2
`)

	batch, err := LoadBatch(path)
	if err != nil {
		t.Fatalf("failed to load batch: %v", err)
	}
	if len(batch.Invocations) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(batch.Invocations))
	}
	if batch.Invocations[1].Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %s", batch.Invocations[1].Timeout)
	}
}

func TestLoadBatch_Empty(t *testing.T) {
	path := writeFile(t, "batch.yaml", "invocations: []\n")
	if _, err := LoadBatch(path); err == nil {
		t.Fatal("expected error for empty batch")
	}
}
