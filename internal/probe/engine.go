// Package probe runs plugin probes in batches.
//
// A batch is resolved from a registry snapshot, fanned out with one goroutine
// per target, and reported through an Emitter: one Result per probe that
// returned, then exactly one BatchComplete once every target has finished.
// A probe that panics is contained at its goroutine and still counts toward
// completion.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/openusage/openusage/internal/plugins"
)

var (
	// ErrEngineClosed is returned for requests made after Close
	ErrEngineClosed = errors.New("probe engine is closed")
	// ErrRegistryUnavailable is returned when the engine has no plugin source
	ErrRegistryUnavailable = errors.New("plugin registry unavailable")
)

// Prober executes a single plugin's probe logic
type Prober interface {
	Probe(ctx context.Context, plugin plugins.LoadedPlugin, env plugins.ProbeEnv) (plugins.ProbeOutput, error)
}

// Source supplies a deep copy of the loaded plugins in registry order
type Source interface {
	Snapshot() []plugins.LoadedPlugin
}

// BatchRequest selects what to probe. A nil PluginIDs means every plugin;
// a non-nil empty slice is a valid empty batch.
type BatchRequest struct {
	BatchID   string   `json:"batchId,omitempty"`
	PluginIDs []string `json:"pluginIds,omitempty"`
}

// CrashError describes a probe that terminated abnormally
type CrashError struct {
	PluginID string
	Value    any
	Stack    []byte
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("probe %s panicked: %v", e.PluginID, e.Value)
}

// Engine holds the shared probe context and dispatches batches
type Engine struct {
	source  Source
	prober  Prober
	env     plugins.ProbeEnv
	emitter Emitter
	logger  *slog.Logger

	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewEngine creates a new probe engine
func NewEngine(source Source, prober Prober, env plugins.ProbeEnv, emitter Emitter, logger *slog.Logger) *Engine {
	return &Engine{
		source:  source,
		prober:  prober,
		env:     env,
		emitter: emitter,
		logger:  logger.With("component", "probe_engine"),
	}
}

// snapshot copies the registry or fails the request before any work is spawned
func (e *Engine) snapshot() ([]plugins.LoadedPlugin, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if e.source == nil {
		return nil, ErrRegistryUnavailable
	}
	return e.source.Snapshot(), nil
}

// StartBatch resolves the request and starts one probe per target.
// It returns as soon as the probes are spawned.
func (e *Engine) StartBatch(req BatchRequest) (BatchStarted, error) {
	registry, err := e.snapshot()
	if err != nil {
		return BatchStarted{}, err
	}

	batchID := NormalizeBatchID(req.BatchID)
	targets := SelectTargets(registry, req.PluginIDs)
	started := BatchStarted{BatchID: batchID, PluginIDs: pluginIDs(targets)}

	e.logger.Info("probe batch starting",
		"batch_id", batchID,
		"plugins", started.PluginIDs,
	)
	e.emitter.BatchStarted(started)

	if len(targets) == 0 {
		e.logger.Info("probe batch complete", "batch_id", batchID, "targets", 0)
		e.emitter.BatchComplete(BatchComplete{BatchID: batchID})
		return started, nil
	}

	remaining := &atomic.Int64{}
	remaining.Store(int64(len(targets)))

	for _, plugin := range targets {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.runUnit(batchID, plugin, remaining)
		}()
	}

	return started, nil
}

// runUnit probes one plugin and takes part in the batch countdown.
// The goroutine whose decrement reaches zero emits BatchComplete.
func (e *Engine) runUnit(batchID string, plugin plugins.LoadedPlugin, remaining *atomic.Int64) {
	pluginID := plugin.Manifest.ID
	logger := e.logger.With("batch_id", batchID, "plugin", pluginID)

	defer func() {
		if remaining.Add(-1) == 0 {
			logger.Info("probe batch complete")
			e.emitter.BatchComplete(BatchComplete{BatchID: batchID})
		}
	}()

	output, err := e.probe(plugin)
	if err != nil {
		var crash *CrashError
		if errors.As(err, &crash) {
			logger.Error("probe panicked",
				"error", crash.Value,
				"stack", string(crash.Stack),
			)
		} else {
			logger.Error("probe failed", "error", err)
		}
		return
	}

	if output.HasErrorBadge() {
		logger.Warn("probe completed with error")
	} else {
		logger.Info("probe completed ok", "lines", len(output.Lines))
	}
	e.emitter.Result(Result{BatchID: batchID, Output: output})
}

// probe converts a panic in the probe logic into a *CrashError
func (e *Engine) probe(plugin plugins.LoadedPlugin) (output plugins.ProbeOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CrashError{
				PluginID: plugin.Manifest.ID,
				Value:    r,
				Stack:    debug.Stack(),
			}
		}
	}()
	return e.prober.Probe(context.Background(), plugin, e.env)
}

// ListPlugins returns display metadata for every loaded plugin
func (e *Engine) ListPlugins() ([]PluginMeta, error) {
	registry, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	e.logger.Debug("list plugins", "count", len(registry))

	metas := make([]PluginMeta, len(registry))
	for i := range registry {
		metas[i] = NewPluginMeta(&registry[i])
	}
	return metas, nil
}

// Plugin returns display metadata for one plugin
func (e *Engine) Plugin(id string) (PluginMeta, error) {
	registry, err := e.snapshot()
	if err != nil {
		return PluginMeta{}, err
	}
	for i := range registry {
		if registry[i].Manifest.ID == id {
			return NewPluginMeta(&registry[i]), nil
		}
	}
	return PluginMeta{}, fmt.Errorf("%w: %s", plugins.ErrPluginNotFound, id)
}

// Close rejects new requests. In-flight batches keep running; use Wait to drain them.
func (e *Engine) Close() {
	e.closed.Store(true)
}

// Wait blocks until every spawned probe has finished or ctx is done
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
