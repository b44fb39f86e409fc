// Package rpc contains the network side of bronzeKV: the wire format, the
// transports and the server and client built on top of them.
//
// The package is organized into several subpackages:
//
//   - codec: Length prefixed encoding of keys, values and single bytes.
//
//   - protocol: Requests and responses (one action tag or status byte
//     followed by the payload), including the streamed scan response.
//
//   - common: Configuration structures and logging shared by server, client and CLI.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets).
//
//   - server: The request loop that executes requests against a db.Engine.
//
//   - client: Single connections and a connection pool for applications.
package rpc
