// Package broker bridges room broadcasts onto a shared publish/subscribe
// system so a cluster can route intents for a room owned by another
// instance. Rooms stay sticky to one instance; the bridge only mirrors
// outbound events.
package broker

// Publisher mirrors one room event to the out-of-process broker. Publishing
// is fire-and-forget: failures are logged by the implementation and never
// block the room loop.
type Publisher interface {
	Publish(roomID string, payload []byte)
	Close() error
}

// Noop discards everything. Used when no broker is configured.
type Noop struct{}

// Publish discards the payload.
func (Noop) Publish(string, []byte) {}

// Close is a no-op.
func (Noop) Close() error { return nil }
