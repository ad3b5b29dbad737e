package channels

import (
	"sync"
	"time"

	"github.com/openusage/openusage/internal/probe"
)

// ProbeEvent is one notification about a probe batch.
// Exactly one of Started, Result and Complete is set, matching Type.
type ProbeEvent struct {
	Type      string
	BatchID   string
	Started   *probe.BatchStarted
	Result    *probe.Result
	Complete  *probe.BatchComplete
	Timestamp time.Time
}

// Payload returns the populated notification body
func (e ProbeEvent) Payload() any {
	switch {
	case e.Started != nil:
		return e.Started
	case e.Result != nil:
		return e.Result
	case e.Complete != nil:
		return e.Complete
	}
	return nil
}

// ProbeEvents implements probe.Emitter on top of a buffered channel.
// Sends block while the buffer is full so no notification is dropped;
// after Close they are discarded.
type ProbeEvents struct {
	events chan ProbeEvent

	done      chan struct{}
	closeOnce sync.Once
}

var _ probe.Emitter = (*ProbeEvents)(nil)

// NewProbeEvents creates a new ProbeEvents hub with configured buffer size
func NewProbeEvents(cfg EventChannelsConfig) *ProbeEvents {
	return &ProbeEvents{
		events: make(chan ProbeEvent, cfg.ProbeBufferSize),
		done:   make(chan struct{}),
	}
}

func (pe *ProbeEvents) send(event ProbeEvent) {
	event.Timestamp = time.Now()
	select {
	case pe.events <- event:
	case <-pe.done:
	}
}

// BatchStarted implements probe.Emitter
func (pe *ProbeEvents) BatchStarted(ev probe.BatchStarted) {
	pe.send(ProbeEvent{Type: probe.EventBatchStarted, BatchID: ev.BatchID, Started: &ev})
}

// Result implements probe.Emitter
func (pe *ProbeEvents) Result(ev probe.Result) {
	pe.send(ProbeEvent{Type: probe.EventResult, BatchID: ev.BatchID, Result: &ev})
}

// BatchComplete implements probe.Emitter
func (pe *ProbeEvents) BatchComplete(ev probe.BatchComplete) {
	pe.send(ProbeEvent{Type: probe.EventBatchComplete, BatchID: ev.BatchID, Complete: &ev})
}

// C returns the receive side of the event channel
func (pe *ProbeEvents) C() <-chan ProbeEvent {
	return pe.events
}

// Close stops delivery. The event channel itself stays open so that late
// senders never panic; consumers exit on Done.
func (pe *ProbeEvents) Close() error {
	pe.closeOnce.Do(func() {
		close(pe.done)
	})
	return nil
}

// Done returns a channel that's closed when the hub is shutting down
func (pe *ProbeEvents) Done() <-chan struct{} {
	return pe.done
}
