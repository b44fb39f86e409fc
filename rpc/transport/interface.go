package transport

import (
	"context"
	"net"

	"github.com/ValentinKolb/bronzeKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ConnHandler serves a single accepted connection and returns when the
// connection is done. A nil error means the client closed the connection
// cleanly. The context is cancelled when the server shuts down.
type ConnHandler func(ctx context.Context, conn net.Conn) error

// IIdleConn is implemented by connections that apply per-operation deadlines.
// MarkIdle exempts the next Read from the read deadline, so a peer that is
// slow to start its next message does not time out. Deadlines resume once
// that Read returns.
type IIdleConn interface {
	MarkIdle()
}

// IRPCServerTransport is the interface for the server side of the transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the handler every accepted connection is passed to
	RegisterHandler(handler ConnHandler)
	// Listen binds the listener, it does not accept connections yet
	Listen(config common.TransportConf) error
	// Addr returns the bound address, nil before Listen
	Addr() net.Addr
	// Serve accepts connections until ctx is cancelled. On return the listener
	// and all live connections are closed and every handler has finished.
	Serve(ctx context.Context) error
	// ActiveConnections returns the number of connections currently served
	ActiveConnections() int
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the client side of the transport layer
type IRPCClientTransport interface {
	// Dial opens a new connection to config.Endpoint. The returned connection
	// applies config.TimeoutSecond as deadline to every read and write.
	Dial(config common.TransportConf) (net.Conn, error)
	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}
