package channels

import (
	"context"
	"log/slog"
)

// Sink receives forwarded probe events in emission order
type Sink func(ProbeEvent)

// StartProbeEventForwarder starts a goroutine that logs batch completions
// and hands every event to the sinks, in order.
func StartProbeEventForwarder(ctx context.Context, events *ProbeEvents, logger *slog.Logger, sinks ...Sink) {
	go func() {
		for {
			select {
			case event := <-events.C():
				if event.Complete != nil {
					logger.InfoContext(ctx, "Probe batch delivered",
						slog.String("batch_id", event.BatchID),
					)
				}
				for _, sink := range sinks {
					sink(event)
				}
			case <-ctx.Done():
				return
			case <-events.Done():
				return
			}
		}
	}()
}
