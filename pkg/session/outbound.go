package session

// Frame is one outbound event destined for a single recipient. The transport
// flattens Payload next to the event name on the wire.
type Frame struct {
	Event   string
	Payload map[string]interface{}
}

// Broadcaster delivers frames to connected users. Delivery is best-effort:
// a user without a live connection simply misses the frame and recovers via
// get_state on reconnect.
type Broadcaster interface {
	Send(userID string, frame Frame)
}

// NopBroadcaster drops every frame. Useful in tests that only exercise state.
type NopBroadcaster struct{}

// Send discards the frame.
func (NopBroadcaster) Send(string, Frame) {}
