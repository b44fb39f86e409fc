package base

import (
	"net"
	"time"

	"github.com/cockroachdb/errors"
)

// deadlineConn renews the read or write deadline before every Read and Write.
// A connection that stays idle longer than timeout fails with a timeout error,
// unless the reader marked it idle with MarkIdle.
//
// Thread-safety: Read and MarkIdle belong to the reading goroutine.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
	idle    bool // next Read waits without a deadline
}

// withDeadlines wraps conn if timeout is positive
func withDeadlines(conn net.Conn, timeout time.Duration) net.Conn {
	if timeout <= 0 {
		return conn
	}
	return &deadlineConn{Conn: conn, timeout: timeout}
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	deadline := time.Now().Add(c.timeout)
	if c.idle {
		deadline = time.Time{}
		c.idle = false
	}
	if err := c.Conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

// MarkIdle implements transport.IIdleConn
func (c *deadlineConn) MarkIdle() {
	c.idle = true
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

// isTimeout reports whether err is a deadline expiry
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
