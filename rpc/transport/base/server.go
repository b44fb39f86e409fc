package base

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/bronzeKV/rpc/common"
	"github.com/ValentinKolb/bronzeKV/rpc/transport"
	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.TransportConf) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.TransportConf) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the accept loop and connection tracking
// independent of the specific transport medium (unix, tcp, etc.)
type serverTransport struct {
	connector IServerConnector
	handler   transport.ConnHandler
	config    common.TransportConf
	listener  net.Listener

	conns  *xsync.MapOf[uint64, net.Conn] // Live connections by id
	nextID atomic.Uint64
	wg     sync.WaitGroup // One per running connection handler
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport for the given connector
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     xsync.NewMapOf[uint64, net.Conn](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ConnHandler) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.TransportConf) error {
	if t.listener != nil {
		return errors.New("transport is already listening")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return errors.Wrap(err, "failed to create listener")
	}
	t.listener = listener
	return nil
}

func (t *serverTransport) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) ActiveConnections() int {
	return t.conns.Size()
}

func (t *serverTransport) Serve(ctx context.Context) error {
	if t.listener == nil {
		return errors.New("transport is not listening, call Listen first")
	}
	if t.handler == nil {
		return errors.New("no connection handler registered")
	}

	Logger.Infof("Starting %s server on %s", t.connector.GetName(), t.listener.Addr())

	// Closing the listener is what unblocks Accept on shutdown
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = t.listener.Close()
		case <-stop:
		}
	}()

	backoff := time.Duration(0)
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}

			// Back off on accept errors (e.g. too many open files)
			if backoff == 0 {
				backoff = minAcceptBackoff
			} else if backoff *= 2; backoff > maxAcceptBackoff {
				backoff = maxAcceptBackoff
			}
			Logger.Errorf("Accept error: %v; retrying in %s", err, backoff)

			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
			}
			break
		}
		backoff = 0

		t.startConnection(ctx, conn)
	}

	// The listener is closed at this point, no new connections can show up
	_ = t.listener.Close()
	t.closeConnections()
	t.wg.Wait()

	Logger.Infof("%s server on %s stopped", t.connector.GetName(), t.listener.Addr())
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// startConnection tracks conn and runs the handler for it in a new goroutine
func (t *serverTransport) startConnection(ctx context.Context, conn net.Conn) {
	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		Logger.Warningf("Failed to apply socket options to %s: %v", conn.RemoteAddr(), err)
	}

	id := t.nextID.Add(1)
	t.conns.Store(id, conn)
	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		defer t.conns.Delete(id)
		defer conn.Close()

		remote := conn.RemoteAddr()
		Logger.Debugf("Accepted connection %d from %s", id, remote)

		err := t.handler(ctx, withDeadlines(conn, t.config.Timeout()))
		switch {
		case err == nil || errors.Is(err, io.EOF):
			Logger.Debugf("Connection %d closed by client", id)
		case ctx.Err() != nil:
			Logger.Debugf("Connection %d closed by server shutdown", id)
		case isTimeout(err):
			Logger.Infof("Connection %d from %s timed out", id, remote)
		default:
			Logger.Warningf("Connection %d from %s terminated: %v", id, remote, err)
		}
	}()
}

// closeConnections closes all live connections, their handlers return on the next read
func (t *serverTransport) closeConnections() {
	t.conns.Range(func(id uint64, conn net.Conn) bool {
		_ = conn.Close()
		return true
	})
}
