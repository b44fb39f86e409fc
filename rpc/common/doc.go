// Package common provides the configuration structures and the logging setup
// shared by the bronzeKV server, client and command line tools.
//
// Key Components:
//
//   - TransportConf: Transport type (tcp or unix), endpoint, per operation
//     timeout and socket level tuning (SocketConf, TCPConf). Used by both ends
//     of a connection.
//
//   - ServerConfig: Complete server configuration, including the storage
//     engine selection, the optional metrics endpoint and logging. String()
//     renders it for the startup banner.
//
//   - ClientConfig: Client side transport and pool settings.
//
//   - Logger: A zap backed implementation of dragonboat's logger.ILogger.
//     Every package declares its own named logger with logger.GetLogger and
//     InitLoggers routes all of them to a console sink and, optionally, a
//     rotating JSON log file (lumberjack).
package common
