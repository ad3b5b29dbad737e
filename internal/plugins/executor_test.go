package plugins

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func loadTestPlugin(t *testing.T, id, script string) LoadedPlugin {
	t.Helper()
	dir := writePlugin(t, t.TempDir(), id, manifestJSON(id), script)
	plugin, err := LoadPlugin(dir)
	if err != nil {
		t.Fatalf("failed to load plugin: %v", err)
	}
	return plugin
}

func TestExecutorProbe(t *testing.T) {
	script := `#!/bin/sh
cat > input.json
echo '{"lines":[{"type":"progress","label":"Session","value":25,"max":100,"unit":"percent"},{"type":"text","label":"Plan","value":"Pro"}]}'
`
	plugin := loadTestPlugin(t, "codex", script)
	appData := t.TempDir()

	executor := NewExecutor(5*time.Second, 0, discardLogger())
	executor.now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }

	out, err := executor.Probe(context.Background(), plugin, ProbeEnv{AppDataDir: appData, AppVersion: "0.6.3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.ProviderID != "codex" || out.DisplayName != "CODEX" {
		t.Errorf("unexpected identity: %+v", out)
	}
	if len(out.Lines) != 2 || out.HasErrorBadge() {
		t.Fatalf("unexpected lines: %+v", out.Lines)
	}
	if out.Lines[0] != ProgressLine("Session", 25, 100, "percent") {
		t.Errorf("unexpected progress line: %+v", out.Lines[0])
	}

	data, err := os.ReadFile(filepath.Join(plugin.Dir, "input.json"))
	if err != nil {
		t.Fatalf("probe did not receive input: %v", err)
	}
	var input probeInput
	if err := json.Unmarshal(data, &input); err != nil {
		t.Fatalf("invalid probe input: %v", err)
	}
	wantDataDir := filepath.Join(appData, "plugins_data", "codex")
	if input.PluginID != "codex" || input.NowISO != "2026-02-03T04:05:06Z" {
		t.Errorf("unexpected input: %+v", input)
	}
	if input.App.Version != "0.6.3" || input.App.AppDataDir != appData || input.App.PluginDataDir != wantDataDir {
		t.Errorf("unexpected app info: %+v", input.App)
	}
	if info, err := os.Stat(wantDataDir); err != nil || !info.IsDir() {
		t.Errorf("plugin data dir was not created: %v", err)
	}
}

func TestExecutorSoftFailures(t *testing.T) {
	testCases := []struct {
		name    string
		script  string
		timeout time.Duration
		want    string
	}{
		{"ExitCode", "#!/bin/sh\necho boom >&2\nexit 1\n", 5 * time.Second, ProbeFailedMessage},
		{"InvalidJSON", "#!/bin/sh\necho not json\n", 5 * time.Second, ProbeFailedMessage},
		{"MissingLines", "#!/bin/sh\necho '{}'\n", 5 * time.Second, ProbeFailedMessage},
		{"BadLine", "#!/bin/sh\necho '{\"lines\":[{\"type\":\"badge\",\"label\":\"x\"}]}'\n", 5 * time.Second, ProbeFailedMessage},
		{"Timeout", "#!/bin/sh\nexec sleep 5\n", 200 * time.Millisecond, "probe() timed out after 200ms"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plugin := loadTestPlugin(t, "flaky", tc.script)
			executor := NewExecutor(tc.timeout, 1, discardLogger())

			out, err := executor.Probe(context.Background(), plugin, ProbeEnv{AppDataDir: t.TempDir()})
			if err != nil {
				t.Fatalf("process failures must not surface as errors: %v", err)
			}
			if !out.HasErrorBadge() {
				t.Fatalf("expected error badge, got %+v", out.Lines)
			}
			if out.Lines[0].Text != tc.want {
				t.Errorf("expected %q, got %q", tc.want, out.Lines[0].Text)
			}
		})
	}
}

func TestExecutorEmptyLines(t *testing.T) {
	plugin := loadTestPlugin(t, "quiet", okScript)
	out, err := NewExecutor(5*time.Second, 0, discardLogger()).Probe(context.Background(), plugin, ProbeEnv{AppDataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if out.Lines == nil || len(out.Lines) != 0 {
		t.Errorf("expected empty non-nil lines, got %#v", out.Lines)
	}
}

func TestExecutorSlotCanceled(t *testing.T) {
	plugin := loadTestPlugin(t, "codex", okScript)
	executor := NewExecutor(time.Second, 1, discardLogger())

	// Hold the only slot so the probe must wait on ctx
	if err := executor.slots.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer executor.slots.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := executor.Probe(ctx, plugin, ProbeEnv{AppDataDir: t.TempDir()}); err == nil {
		t.Error("expected error when context is done before a slot frees up")
	}
}
