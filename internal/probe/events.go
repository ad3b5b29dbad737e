package probe

import "github.com/openusage/openusage/internal/plugins"

// Event names used on the wire
const (
	EventBatchStarted  = "probe:batch-started"
	EventResult        = "probe:result"
	EventBatchComplete = "probe:batch-complete"
)

// BatchStarted announces the resolved targets of a batch
type BatchStarted struct {
	BatchID   string   `json:"batchId"`
	PluginIDs []string `json:"pluginIds"`
}

// Result carries one plugin's output for a batch
type Result struct {
	BatchID string              `json:"batchId"`
	Output  plugins.ProbeOutput `json:"output"`
}

// BatchComplete is emitted exactly once per batch after every target finished
type BatchComplete struct {
	BatchID string `json:"batchId"`
}

// Emitter receives batch notifications. Result and BatchComplete are called
// from probe goroutines and must be safe for concurrent use.
type Emitter interface {
	BatchStarted(BatchStarted)
	Result(Result)
	BatchComplete(BatchComplete)
}
