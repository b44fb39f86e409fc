package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/bronzeKV/lib/db"
	"github.com/ValentinKolb/bronzeKV/rpc/common"
	"github.com/ValentinKolb/bronzeKV/rpc/transport"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

const metricsShutdownTimeout = 5 * time.Second

// NewRPCServer creates a new RPC server
// It takes a config, transport and the engine all connections share
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		memory.NewMemoryDB(nil),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	engine db.Engine,
) IRPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := &rpcServer{
		config:    config,
		transport: transport,
		engine:    engine,
	}
	s.metrics = newServerMetrics(transport.ActiveConnections)
	s.transport.RegisterHandler(s.handleConnection)

	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", config.String())

	return s
}

type rpcServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	engine    db.Engine
	metrics   *serverMetrics
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IRPCServer)
// --------------------------------------------------------------------------

func (s *rpcServer) Listen() error {
	if s.transport.Addr() != nil {
		return nil
	}
	return s.transport.Listen(s.config.Transport)
}

func (s *rpcServer) Addr() net.Addr {
	return s.transport.Addr()
}

func (s *rpcServer) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	if s.config.MetricsEndpoint != "" {
		metricsServer, err := s.startMetricsServer()
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	Logger.Infof("bronzeKV serving %s engine", s.config.Engine)
	return s.transport.Serve(ctx)
}

func (s *rpcServer) WriteMetrics(w io.Writer) {
	s.metrics.writePrometheus(w)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// startMetricsServer serves /metrics over HTTP on the configured endpoint
func (s *rpcServer) startMetricsServer() (*http.Server, error) {
	listener, err := net.Listen("tcp", s.config.MetricsEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create metrics listener")
	}

	srv := &http.Server{
		Handler:           s.httpHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		Logger.Infof("Serving metrics on http://%s/metrics", listener.Addr())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics server failed: %v", err)
		}
	}()

	return srv, nil
}

// httpHandler serves the Prometheus metrics at /metrics and the engine info as JSON at /info
func (s *rpcServer) httpHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		s.WriteMetrics(w)
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.engine.GetInfo()); err != nil {
			Logger.Warningf("Failed to write engine info: %v", err)
		}
	})
	return mux
}
