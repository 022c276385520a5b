package invoker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/kadirpekel/tandem/pkg/config"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("agent stub scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "agent.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write agent stub: %v", err)
	}
	return path
}

func testConfig(command string) *config.Config {
	disabled := false
	cfg := &config.Config{
		Agents: map[string]*config.AgentConfig{
			"pm":  {Name: "pm", Command: command},
			"off": {Name: "off", Command: command, Enabled: &disabled},
		},
	}
	cfg.SetDefaults()
	return cfg
}

func TestProcessInvoker_Invoke(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo '{"status":"success","data":{"fixme_count":3}}'`)

	inv, err := NewProcessInvoker(testConfig(script))
	if err != nil {
		t.Fatalf("failed to create invoker: %v", err)
	}

	resp, err := inv.Invoke(context.Background(), "pm", "analyze", map[string]any{"scope": "full"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("expected success, got %q", resp.Status)
	}
	if resp.Data["fixme_count"] != 3.0 {
		t.Errorf("expected data decoded, got %v", resp.Data)
	}
}

func TestProcessInvoker_RequestOnStdin(t *testing.T) {
	// The stub echoes the received request back inside the data payload.
	script := writeScript(t, `req=$(cat)
printf '{"status":"success","data":{"received":%s}}' "$(printf '%s' "$req" | sed 's/"/\\"/g; s/^/"/; s/$/"/')"`)

	inv, err := NewProcessInvoker(testConfig(script))
	if err != nil {
		t.Fatalf("failed to create invoker: %v", err)
	}

	resp, err := inv.Invoke(context.Background(), "pm", "analyze", map[string]any{"depth": 2.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	received, _ := resp.Data["received"].(string)
	if !strings.Contains(received, `"action":"analyze"`) {
		t.Errorf("expected action in request, got %q", received)
	}
	if !strings.Contains(received, `"depth":2`) {
		t.Errorf("expected params in request, got %q", received)
	}
}

func TestProcessInvoker_UnknownAgent(t *testing.T) {
	inv, err := NewProcessInvoker(testConfig("/bin/true"))
	if err != nil {
		t.Fatalf("failed to create invoker: %v", err)
	}

	if _, err := inv.Invoke(context.Background(), "ghost", "x", nil); err == nil {
		t.Fatal("expected error for unknown agent")
	}
}

func TestProcessInvoker_DisabledAgent(t *testing.T) {
	inv, err := NewProcessInvoker(testConfig("/bin/true"))
	if err != nil {
		t.Fatalf("failed to create invoker: %v", err)
	}

	if _, err := inv.Invoke(context.Background(), "off", "x", nil); err == nil {
		t.Fatal("expected error for disabled agent")
	}
}

func TestProcessInvoker_NonZeroExit(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo "agent crashed" >&2
exit 3`)

	inv, err := NewProcessInvoker(testConfig(script))
	if err != nil {
		t.Fatalf("failed to create invoker: %v", err)
	}

	_, err = inv.Invoke(context.Background(), "pm", "analyze", nil)
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "agent crashed") {
		t.Errorf("expected stderr detail, got %v", err)
	}
	if !strings.Contains(err.Error(), "code 3") {
		t.Errorf("expected exit code in error, got %v", err)
	}
}

func TestProcessInvoker_MalformedResponse(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo "not json"`)

	inv, err := NewProcessInvoker(testConfig(script))
	if err != nil {
		t.Fatalf("failed to create invoker: %v", err)
	}

	if _, err := inv.Invoke(context.Background(), "pm", "analyze", nil); err == nil {
		t.Fatal("expected error for malformed response")
	}
}

func TestProcessInvoker_ContextCancellation(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
sleep 10
echo '{"status":"success"}'`)

	inv, err := NewProcessInvoker(testConfig(script))
	if err != nil {
		t.Fatalf("failed to create invoker: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = inv.Invoke(ctx, "pm", "analyze", nil)
	if err != context.DeadlineExceeded {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestProcessInvoker_AgentEnv(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
printf '{"status":"success","data":{"mode":"%s"}}' "$AGENT_MODE"`)

	cfg := testConfig(script)
	cfg.Agents["pm"].Env = map[string]string{"AGENT_MODE": "batch"}

	inv, err := NewProcessInvoker(cfg)
	if err != nil {
		t.Fatalf("failed to create invoker: %v", err)
	}

	resp, err := inv.Invoke(context.Background(), "pm", "analyze", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Data["mode"] != "batch" {
		t.Errorf("expected env var visible to agent, got %v", resp.Data)
	}
}
