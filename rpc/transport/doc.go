// Package transport defines the interfaces of the bronzeKV transport layer.
//
// bronzeKV speaks its protocol over plain byte streams, so the transport layer
// only moves connections around: the server side accepts connections and hands
// each one to a ConnHandler, the client side dials connections. Framing and
// message handling live in package protocol and the rpc server and client.
//
// Key Components:
//
//   - IRPCServerTransport: Binds a listener, runs the accept loop and tracks
//     live connections so they can be closed on shutdown.
//
//   - IRPCClientTransport: Dials connections with the configured socket options.
//
//   - ConnHandler: Function type for the per connection request loop.
//
// Implementations for TCP and Unix domain sockets are provided by the tcp and
// unix packages on top of the shared base package.
package transport
