package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"
)

// ProbeFailedMessage is the badge text for probes that did not produce valid output
const ProbeFailedMessage = "probe() failed"

// Executor runs plugin probe executables via STDIN/STDOUT
type Executor struct {
	timeout time.Duration
	slots   *semaphore.Weighted // nil when unlimited
	now     func() time.Time
	logger  *slog.Logger
}

// NewExecutor creates a new plugin executor. maxProcs <= 0 means no host-level limit.
func NewExecutor(timeout time.Duration, maxProcs int, logger *slog.Logger) *Executor {
	e := &Executor{
		timeout: timeout,
		now:     time.Now,
		logger:  logger.With("component", "plugin_executor"),
	}
	if maxProcs > 0 {
		e.slots = semaphore.NewWeighted(int64(maxProcs))
	}
	return e
}

// PluginDataDir is the per-plugin writable directory under the app data dir
func PluginDataDir(appDataDir, pluginID string) string {
	return filepath.Join(appDataDir, "plugins_data", pluginID)
}

// Probe runs one plugin's probe. Failures of the plugin process are reported
// as an Error badge in the returned output; the error return is reserved for
// the caller's context being done before the probe could start.
func (e *Executor) Probe(ctx context.Context, plugin LoadedPlugin, env ProbeEnv) (ProbeOutput, error) {
	if e.slots != nil {
		if err := e.slots.Acquire(ctx, 1); err != nil {
			return ProbeOutput{}, fmt.Errorf("waiting for probe slot: %w", err)
		}
		defer e.slots.Release(1)
	}

	pluginID := plugin.Manifest.ID
	logger := e.logger.With("plugin", pluginID)

	dataDir := PluginDataDir(env.AppDataDir, pluginID)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logger.Warn("Failed to create plugin data dir", "path", dataDir, "error", err)
	}

	inputJSON, err := json.Marshal(probeInput{
		PluginID: pluginID,
		NowISO:   e.now().UTC().Format(time.RFC3339),
		App: probeAppInfo{
			Version:       env.AppVersion,
			AppDataDir:    env.AppDataDir,
			PluginDataDir: dataDir,
		},
	})
	if err != nil {
		return ProbeOutput{}, fmt.Errorf("failed to marshal probe input: %w", err)
	}

	execCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, plugin.EntryPath())
	cmd.Dir = plugin.Dir
	cmd.Stdin = bytes.NewReader(inputJSON)
	// Don't hang on children that inherited the output pipes
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Executing plugin probe", "entry", plugin.Manifest.Entry)

	err = cmd.Run()

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		logger.Warn("Plugin probe timed out", "timeout", e.timeout)
		return ErrorOutput(&plugin, fmt.Sprintf("probe() timed out after %v", e.timeout)), nil
	}

	if err != nil {
		logger.Warn("Plugin probe execution failed",
			"error", err,
			"stderr", stderr.String(),
		)
		return ErrorOutput(&plugin, ProbeFailedMessage), nil
	}

	out, err := parseProbeOutput(&plugin, stdout.Bytes())
	if err != nil {
		logger.Warn("Plugin probe returned invalid output", "error", err)
		return ErrorOutput(&plugin, ProbeFailedMessage), nil
	}
	return out, nil
}

// parseProbeOutput decodes {"lines":[...]} written by a probe
func parseProbeOutput(plugin *LoadedPlugin, data []byte) (ProbeOutput, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ProbeOutput{}, fmt.Errorf("output is not a JSON object: %w", err)
	}
	linesJSON, ok := raw["lines"]
	if !ok {
		return ProbeOutput{}, errors.New("output is missing lines")
	}

	var lines []MetricLine
	if err := json.Unmarshal(linesJSON, &lines); err != nil {
		return ProbeOutput{}, fmt.Errorf("failed to parse lines: %w", err)
	}

	out := newOutput(plugin)
	out.Lines = lines
	if out.Lines == nil {
		out.Lines = []MetricLine{}
	}
	return out, nil
}
