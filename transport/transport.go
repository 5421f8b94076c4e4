// Package transport defines the message channel between the hub context and
// peer contexts, plus an in-process implementation used by tests and
// single-process deployments.
//
// Delivery is fire-and-forget: there is no acknowledgement, retry, or
// recovery of lost messages. The only guarantee the protocol relies on is
// per-channel FIFO ordering.
package transport

import (
	"errors"

	"github.com/crosstate/storesync/syncmsg"
)

// ErrClosed is returned by PostMessage after a port has disconnected.
var ErrClosed = errors.New("port closed")

// Port is one endpoint of a point-to-point message channel.
type Port interface {
	// Name returns the channel identity chosen by the connecting side.
	Name() string

	// PostMessage sends an envelope to the remote endpoint. Callers catch
	// and log the error; a failed send never aborts the protocol.
	PostMessage(env syncmsg.Envelope) error

	// OnMessage registers fn for every envelope received from the remote
	// endpoint. Multiple listeners are invoked in registration order.
	OnMessage(fn func(env syncmsg.Envelope))

	// OnDisconnect registers fn to run once when the channel closes.
	OnDisconnect(fn func())

	// Close tears down the channel and notifies both sides' disconnect
	// listeners.
	Close() error
}

// Listener accepts inbound connections on the hub side.
type Listener interface {
	// HandleConnection registers fn to be invoked once per inbound
	// connection. fn runs before any message from that connection is
	// delivered.
	HandleConnection(fn func(port Port))
}

// Dialer opens the single outbound connection on the peer side.
type Dialer interface {
	Connect(name string) (Port, error)
}
