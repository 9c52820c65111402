// Package transport carries change events between stores.
//
// The only implementation is an in-process Bus: every endpoint's
// SendChange fans out to every endpoint on the bus, each of which
// delivers through its own FIFO queue on a dedicated goroutine. The bus
// echoes a change back to its sender on purpose; the engine's loopback
// suppression is what keeps the echo harmless, and running it for real is
// worth more than hiding it here.
//
// Delivery is at-least-once in spirit: the bus itself never drops or
// reorders, but it makes no durability promises. A process crash loses
// whatever was queued.
package transport
