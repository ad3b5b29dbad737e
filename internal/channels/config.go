package channels

// EventChannelsConfig configures buffer sizes for event channels
type EventChannelsConfig struct {
	ProbeBufferSize int
}
