package server

import (
	"context"
	"io"
	"net"
)

// IRPCServer is a bronzeKV server serving one engine over one transport
type IRPCServer interface {
	// Listen binds the transport. It is called by Serve if needed, calling it
	// first allows reading Addr before serving.
	Listen() error

	// Addr returns the bound address, nil before Listen
	Addr() net.Addr

	// Serve accepts and serves connections until ctx is cancelled. It returns
	// after all connections are closed. The engine is not closed.
	Serve(ctx context.Context) error

	// WriteMetrics writes the server metrics in Prometheus text format
	WriteMetrics(w io.Writer)
}
