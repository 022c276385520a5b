package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kadirpekel/tandem/pkg/coordinator"
)

// SaveResults writes the results of a parallel batch to dir as a timestamped
// JSON file and returns the written path.
func SaveResults(dir string, results []coordinator.Result) (string, error) {
	return writeJSON(dir, "results", results)
}

// SaveWorkflowResult writes an aggregated workflow run to dir as a
// timestamped JSON file and returns the written path.
func SaveWorkflowResult(dir string, res *coordinator.WorkflowResult) (string, error) {
	return writeJSON(dir, "workflow-"+res.Workflow, res)
}

func writeJSON(dir, prefix string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", prefix, time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	return path, nil
}
