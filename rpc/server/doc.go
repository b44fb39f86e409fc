// Package server implements the bronzeKV RPC server. It binds a transport to a
// single storage engine shared by all connections.
//
// Key Components:
//
//   - NewRPCServer: Factory function creating a configured server with the
//     specified transport and engine.
//
//   - handleConnection: The per connection request loop. Requests are read,
//     executed and answered strictly in order; every response is flushed before
//     the next request is read.
//
//   - serverMetrics: Request counters, error counters and latency histograms per
//     action plus an active connection gauge, built on VictoriaMetrics/metrics
//     and optionally served over HTTP at /metrics.
//
// Request Semantics:
//
//   - NoResponse is never answered and never reaches the engine.
//   - Ping is answered with OK.
//   - A Get for an absent key is answered with NotFound.
//   - An unknown action is answered with UnknownAction and the connection is closed.
//   - An engine failure is answered with EngineError and the connection is closed.
//
// Usage Example:
//
//	s := server.NewRPCServer(
//		common.ServerConfig{Transport: common.TransportConf{Type: common.TransportTCP, Endpoint: ":4000"}},
//		tcp.NewTCPServerTransport(),
//		memory.NewMemoryDB(nil),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := s.Serve(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
