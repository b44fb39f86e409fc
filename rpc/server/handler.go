package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/ValentinKolb/bronzeKV/lib/status"
	"github.com/ValentinKolb/bronzeKV/rpc/protocol"
	"github.com/ValentinKolb/bronzeKV/rpc/transport"
	"github.com/cockroachdb/errors"
)

const connBufferSize = 16 * 1024

// errUnknownAction ends a connection that sent an unrecognized request tag
var errUnknownAction = errors.New("client sent an unknown action")

// handleConnection serves requests on conn one at a time until the client
// disconnects, sends an unknown action or the engine fails.
//
// Every response is flushed before the next request is read.
func (s *rpcServer) handleConnection(_ context.Context, conn net.Conn) error {
	r := bufio.NewReaderSize(conn, connBufferSize)
	w := bufio.NewWriterSize(conn, connBufferSize)
	idleConn, _ := conn.(transport.IIdleConn)

	for {
		// waiting for the next request never times out, only a started one does
		if idleConn != nil && r.Buffered() == 0 {
			idleConn.MarkIdle()
		}

		req, err := protocol.ReadRequest(r)
		if err == io.EOF {
			return nil // clean disconnect at a request boundary
		}
		if err != nil {
			return errors.Wrap(err, "failed to read request")
		}

		start := time.Now()
		err = s.dispatch(req, w)
		s.metrics.observe(req.Action, start, err)
		if err != nil {
			return err
		}
	}
}

// dispatch executes req against the engine and writes the response to w.
// A non-nil error ends the connection, any status it warrants has been
// written and flushed already.
func (s *rpcServer) dispatch(req protocol.Request, w *bufio.Writer) error {
	switch req.Action {
	case protocol.ActionNoResponse:
		return nil

	case protocol.ActionPing:
		return respond(w, protocol.StatusResponse(status.OK))

	case protocol.ActionSet:
		if err := s.engine.Set(req.Key, req.Value); err != nil {
			return engineFailure(w, err, "set %s", req.Key)
		}
		return respond(w, protocol.StatusResponse(status.OK))

	case protocol.ActionDelete:
		if err := s.engine.Delete(req.Key); err != nil {
			return engineFailure(w, err, "delete %s", req.Key)
		}
		return respond(w, protocol.StatusResponse(status.OK))

	case protocol.ActionGet:
		value, found, err := s.engine.Get(req.Key)
		if err != nil {
			return engineFailure(w, err, "get %s", req.Key)
		}
		if !found {
			return respond(w, protocol.StatusResponse(status.NotFound))
		}
		return respond(w, protocol.ValueResponse(value))

	case protocol.ActionScan:
		return s.scan(req, w)

	default:
		if err := respond(w, protocol.StatusResponse(status.UnknownAction)); err != nil {
			return err
		}
		return errUnknownAction
	}
}

// scan streams the matching entries. The scanner is closed before the next
// request is read.
func (s *rpcServer) scan(req protocol.Request, w *bufio.Writer) error {
	scanner, err := s.engine.Scan(req.Lower, req.Upper)
	if err != nil {
		return engineFailure(w, err, "scan %s..%s", req.Lower, req.Upper)
	}
	defer scanner.Close()

	// Iteration errors are recorded here, anything else WriteTo returns is a write failure
	var iterErr error
	entries := func(yield func(e kv.Entry, err error) bool) {
		for entry, err := range scanner.Entries() {
			if err != nil {
				iterErr = err
			}
			if !yield(entry, err) {
				return
			}
		}
	}

	_, err = protocol.ScannerResponse(entries).WriteTo(w)
	if iterErr != nil {
		// The stream terminator already carries the failure code
		_ = w.Flush()
		return errors.Wrapf(status.FromEngine(iterErr), "scan %s..%s", req.Lower, req.Upper)
	}
	if err != nil {
		return errors.Wrap(err, "failed to write scan response")
	}
	return flush(w)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// respond writes and flushes a response
func respond(w *bufio.Writer, resp protocol.Response) error {
	if _, err := resp.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write response")
	}
	return flush(w)
}

func flush(w *bufio.Writer) error {
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush response")
	}
	return nil
}

// engineFailure reports EngineError to the client and returns the engine error
func engineFailure(w *bufio.Writer, err error, format string, args ...interface{}) error {
	if writeErr := respond(w, protocol.StatusResponse(status.EngineError)); writeErr != nil {
		Logger.Debugf("Failed to report engine error to client: %v", writeErr)
	}
	return errors.Wrapf(status.FromEngine(err), format, args...)
}
