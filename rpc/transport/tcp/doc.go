// Package tcp implements the TCP socket transport of bronzeKV. It provides
// concrete implementations of the base package's connector interfaces.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// Accepted and dialed connections are tuned from common.TCPConf and
// common.SocketConf (no delay, keep-alive, linger, socket buffer sizes).
package tcp
