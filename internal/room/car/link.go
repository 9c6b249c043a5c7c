// Package car owns the outbound control link to the remote control car: the
// connection state machine, the 50 ms dispatch loop, and the pluggable link
// transports.
package car

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by Send when no car link is established.
var ErrNotConnected = errors.New("car is not connected")

// Link is one established connection to the car.
type Link interface {
	// Send transmits one text control frame.
	Send(ctx context.Context, frame []byte) error

	// Close releases the link. The OnClosed event must not fire for an
	// explicit Close.
	Close() error
}

// LinkEvents carries the callbacks a Link invokes from its own goroutines.
type LinkEvents struct {
	// OnTelemetry receives inbound telemetry text from the car.
	OnTelemetry func(text string)

	// OnClosed fires once when the link drops on its own (transport close or
	// error).
	OnClosed func(err error)
}

// Dialer establishes links to the car. Implementations: websocket (default)
// and MQTT.
type Dialer interface {
	Dial(ctx context.Context, events LinkEvents) (Link, error)
}
