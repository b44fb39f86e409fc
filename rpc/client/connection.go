package client

import (
	"bufio"
	"io"
	"iter"
	"net"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/ValentinKolb/bronzeKV/lib/status"
	"github.com/ValentinKolb/bronzeKV/rpc/common"
	"github.com/ValentinKolb/bronzeKV/rpc/protocol"
	"github.com/ValentinKolb/bronzeKV/rpc/transport"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// ErrConnectionBroken is returned for every request on a connection that
// failed before. The connection has to be closed and replaced.
var ErrConnectionBroken = errors.New("client: connection is broken")

const connBufferSize = 16 * 1024

// NewConnection dials a new connection using the given transport
//
// Usage:
//
//	conn, err := client.NewConnection(config, tcp.NewTCPClientTransport())
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	err = conn.Set(kv.Key("name"), kv.Value("bronze"))
func NewConnection(config common.ClientConfig, transport transport.IRPCClientTransport) (IConnection, error) {
	conn, err := transport.Dial(config.Transport)
	if err != nil {
		return nil, status.FromIO(err)
	}
	return newConnection(conn), nil
}

func newConnection(conn net.Conn) *connection {
	return &connection{
		conn: conn,
		r:    bufio.NewReaderSize(conn, connBufferSize),
		w:    bufio.NewWriterSize(conn, connBufferSize),
	}
}

type connection struct {
	conn    net.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	pending *protocol.EntryReader // Scan stream the caller has not finished yet
	broken  bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IConnection)
// --------------------------------------------------------------------------

func (c *connection) Set(key kv.Key, value kv.Value) error {
	resp, err := c.roundTrip(protocol.NewSetRequest(key, value))
	if err != nil {
		return err
	}
	return c.expectOK(resp, "set")
}

func (c *connection) Get(key kv.Key) (kv.Value, bool, error) {
	resp, err := c.roundTrip(protocol.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	switch {
	case resp.Kind == protocol.KindSingleValue:
		return resp.Value, true, nil
	case resp.Status == status.NotFound:
		return nil, false, nil
	default:
		return nil, false, c.failure(resp.Status, "get")
	}
}

func (c *connection) Delete(key kv.Key) error {
	resp, err := c.roundTrip(protocol.NewDeleteRequest(key))
	if err != nil {
		return err
	}
	return c.expectOK(resp, "delete")
}

func (c *connection) Scan(lower, upper kv.Bound) (iter.Seq2[kv.Entry, error], error) {
	resp, err := c.roundTrip(protocol.NewScanRequest(lower, upper))
	if err != nil {
		return nil, err
	}
	if resp.Kind != protocol.KindScanner {
		return nil, c.failure(resp.Status, "scan")
	}

	stream := resp.Stream
	c.pending = stream
	return func(yield func(kv.Entry, error) bool) {
		for entry, err := range stream.All() {
			if err != nil && !errors.Is(err, protocol.ErrStreamConsumed) {
				// the server closes the connection after a failed scan
				c.broken = true
			}
			if !yield(entry, err) {
				return
			}
		}
	}, nil
}

func (c *connection) Ping() error {
	resp, err := c.roundTrip(protocol.NewPingRequest())
	if err != nil {
		return err
	}
	return c.expectOK(resp, "ping")
}

func (c *connection) NoResponse() error {
	_, err := c.roundTrip(protocol.NewNoResponseRequest())
	return err
}

func (c *connection) IsValid() bool {
	return c.Ping() == nil
}

func (c *connection) HasBroken() bool {
	if c.broken {
		return true
	}
	return c.NoResponse() != nil
}

func (c *connection) Close() error {
	c.broken = true
	c.pending = nil
	return c.conn.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// roundTrip writes req and reads its response. NoResponse requests return a zero Response.
func (c *connection) roundTrip(req protocol.Request) (protocol.Response, error) {
	if c.broken {
		return protocol.Response{}, ErrConnectionBroken
	}

	// Rejected before anything is written, the connection stays usable
	if err := req.Validate(); err != nil {
		return protocol.Response{}, err
	}

	if err := c.finishPending(); err != nil {
		return protocol.Response{}, err
	}

	if _, err := req.WriteTo(c.w); err != nil {
		return protocol.Response{}, c.ioFailure(err)
	}
	if err := c.w.Flush(); err != nil {
		return protocol.Response{}, c.ioFailure(err)
	}

	if req.Action == protocol.ActionNoResponse {
		return protocol.Response{}, nil
	}

	resp, err := protocol.ReadResponse(c.r, req.Action)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return protocol.Response{}, c.ioFailure(err)
	}
	return resp, nil
}

// finishPending drains the unconsumed rest of the last scan stream
func (c *connection) finishPending() error {
	if c.pending == nil {
		return nil
	}
	stream := c.pending
	c.pending = nil
	if stream.Done() {
		return nil
	}

	Logger.Debugf("Draining unconsumed scan stream")
	if err := stream.Drain(); err != nil {
		c.broken = true
		return errors.Wrap(err, "previous scan failed")
	}
	return nil
}

func (c *connection) expectOK(resp protocol.Response, op string) error {
	if resp.Status == status.OK {
		return nil
	}
	return c.failure(resp.Status, op)
}

// failure converts an unexpected status into an error. The server closes
// the connection after EngineError and UnknownAction.
func (c *connection) failure(code status.Code, op string) error {
	if code == status.EngineError || code == status.UnknownAction {
		c.broken = true
	}
	return status.New(code, "%s failed", op)
}

func (c *connection) ioFailure(err error) error {
	c.broken = true
	return status.FromIO(err)
}
