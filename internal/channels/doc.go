// Package channels carries probe batch notifications from the engine to
// whatever delivers them to the UI.
//
// All three notification kinds travel on a single typed channel so that a
// consumer observes them in the order they were emitted: a batch's
// "probe:batch-started" first, its results in completion order, and its
// "probe:batch-complete" last.
//
//	events := channels.NewProbeEvents(channels.EventChannelsConfig{ProbeBufferSize: 64})
//	defer events.Close()
//
//	engine := probe.NewEngine(registry, executor, env, events, logger)
//
//	for {
//	    select {
//	    case event := <-events.C():
//	        // handle event - already typed!
//	    case <-events.Done():
//	        return
//	    }
//	}
package channels
