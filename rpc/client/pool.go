package client

import (
	"sync/atomic"

	"github.com/ValentinKolb/bronzeKV/rpc/common"
	"github.com/ValentinKolb/bronzeKV/rpc/transport"
	"github.com/cockroachdb/errors"
)

const defaultMaxIdle = 8

// ErrPoolClosed is returned by Get after Close
var ErrPoolClosed = errors.New("client: pool is closed")

// NewPool creates a connection pool for the endpoint in config.
// No connection is dialed before the first Get.
func NewPool(config common.ClientConfig, transport transport.IRPCClientTransport) IPool {
	maxIdle := config.MaxIdle
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdle
	}
	return &pool{
		config:    config,
		transport: transport,
		idle:      make(chan IConnection, maxIdle),
	}
}

type pool struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
	idle      chan IConnection
	closed    atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IPool)
// --------------------------------------------------------------------------

func (p *pool) Get() (IConnection, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	for {
		select {
		case conn := <-p.idle:
			if conn.HasBroken() {
				Logger.Debugf("Discarding broken connection to %s", p.config.Transport.Endpoint)
				_ = conn.Close()
				continue
			}
			return conn, nil
		default:
			return NewConnection(p.config, p.transport)
		}
	}
}

func (p *pool) Put(conn IConnection) {
	if conn == nil {
		return
	}
	if p.closed.Load() {
		_ = conn.Close()
		return
	}

	select {
	case p.idle <- conn:
		// Close may have drained the pool in between
		if p.closed.Load() {
			p.drain()
		}
	default:
		_ = conn.Close() // pool is full
	}
}

func (p *pool) Close() error {
	if !p.closed.Swap(true) {
		p.drain()
	}
	return nil
}

// drain closes all idle connections
func (p *pool) drain() {
	for {
		select {
		case conn := <-p.idle:
			_ = conn.Close()
		default:
			return
		}
	}
}
