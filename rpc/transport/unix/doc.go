// Package unix implements the transport layer of bronzeKV on Unix domain
// sockets for clients running on the same machine as the server.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners, removing a stale socket
//     file left behind by a previous run
//
// Only the socket buffer sizes of common.SocketConf apply, the TCP options are ignored.
package unix
