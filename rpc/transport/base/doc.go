// Package base provides the medium independent part of the bronzeKV transports.
// Protocol specific packages (tcp, unix) only supply a connector that knows how
// to listen, dial and tune a socket; everything else lives here.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - serverTransport: Runs the accept loop, hands every connection to the
//     registered handler in its own goroutine and keeps a registry of live
//     connections (xsync.MapOf) so shutdown can close them. Transient accept
//     errors are retried with exponential backoff.
//
//   - clientTransport: Dials and upgrades single connections.
//
// Both sides wrap connections so that every read and write gets a fresh
// deadline of TransportConf.TimeoutSecond. A peer that stalls inside a message
// therefore runs into a timeout instead of holding a goroutine forever. The
// wrapped connection implements transport.IIdleConn: a reader waiting at a
// message boundary calls MarkIdle and its next Read has no deadline.
//
// Thread Safety:
//
//	RegisterHandler and Listen must be called before Serve. Serve, Addr and
//	ActiveConnections are safe for concurrent use. Dial is safe for concurrent use.
package base
