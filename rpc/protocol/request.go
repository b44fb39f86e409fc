package protocol

import (
	"fmt"
	"io"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/ValentinKolb/bronzeKV/rpc/codec"
	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Request Structure
// --------------------------------------------------------------------------

// Request is a single client request. Which fields are used depends on the action.
type Request struct {
	Action Action

	Key   kv.Key   // Used for: Set, Get, Delete
	Value kv.Value // Used for: Set

	Lower kv.Bound // Used for: Scan
	Upper kv.Bound // Used for: Scan
}

// --------------------------------------------------------------------------
// Request Factory Functions
// --------------------------------------------------------------------------

// NewSetRequest creates a new Set request
func NewSetRequest(key kv.Key, value kv.Value) Request {
	return Request{Action: ActionSet, Key: key, Value: value}
}

// NewGetRequest creates a new Get request
func NewGetRequest(key kv.Key) Request {
	return Request{Action: ActionGet, Key: key}
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key kv.Key) Request {
	return Request{Action: ActionDelete, Key: key}
}

// NewScanRequest creates a new Scan request, both bounds are inclusive
func NewScanRequest(lower, upper kv.Bound) Request {
	return Request{Action: ActionScan, Lower: lower, Upper: upper}
}

// NewPingRequest creates a new Ping request
func NewPingRequest() Request {
	return Request{Action: ActionPing}
}

// NewNoResponseRequest creates a new one-way NoResponse request
func NewNoResponseRequest() Request {
	return Request{Action: ActionNoResponse}
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Validate checks all size limits of the request.
func (r Request) Validate() error {
	switch r.Action {
	case ActionSet:
		if err := r.Key.Validate(); err != nil {
			return err
		}
		return r.Value.Validate()
	case ActionGet, ActionDelete:
		return r.Key.Validate()
	case ActionScan:
		if r.Lower.Set {
			if err := r.Lower.Key.Validate(); err != nil {
				return err
			}
		}
		if r.Upper.Set {
			return r.Upper.Key.Validate()
		}
	}
	return nil
}

// WriteTo encodes the request and returns the number of bytes written.
// The request is validated first, so a rejected request leaves nothing on the stream.
//
// Writing an ActionUnknown request is a programming error and panics.
func (r Request) WriteTo(w io.Writer) (int64, error) {
	if r.Action == ActionUnknown {
		panic("protocol: refusing to serialize a request with an unknown action")
	}
	if err := r.Validate(); err != nil {
		return 0, errors.Wrapf(err, "protocol: invalid %s request", r.Action)
	}

	counter, err := codec.WriteByte(w, byte(r.Action))
	if err != nil {
		return int64(counter), err
	}

	n := 0
	switch r.Action {
	case ActionSet:
		if n, err = codec.WriteKey(w, r.Key); err != nil {
			break
		}
		counter += n
		n, err = codec.WriteValue(w, r.Value)
	case ActionGet, ActionDelete:
		n, err = codec.WriteKey(w, r.Key)
	case ActionScan:
		if n, err = codec.WriteKey(w, encodeLower(r.Lower)); err != nil {
			break
		}
		counter += n
		n, err = codec.WriteKey(w, encodeUpper(r.Upper))
	case ActionPing, ActionNoResponse:
		// tag only
	default:
		panic(fmt.Sprintf("protocol: unhandled action %d", r.Action))
	}
	counter += n

	return int64(counter), err
}

// ReadRequest decodes one request.
//
// It returns io.EOF (unwrapped) only if the stream ended cleanly before the
// action tag. An unrecognized tag is not an error: the request comes back with
// ActionUnknown and no payload is consumed.
func ReadRequest(r io.Reader) (Request, error) {
	tag, err := codec.ReadByte(r)
	if err != nil {
		return Request{}, err
	}

	req := Request{Action: ActionFromByte(tag)}
	switch req.Action {
	case ActionSet:
		if req.Key, err = codec.ReadKey(r); err != nil {
			return Request{}, err
		}
		if req.Value, err = codec.ReadValue(r); err != nil {
			return Request{}, err
		}
	case ActionGet, ActionDelete:
		if req.Key, err = codec.ReadKey(r); err != nil {
			return Request{}, err
		}
	case ActionScan:
		lower, err := codec.ReadKey(r)
		if err != nil {
			return Request{}, err
		}
		upper, err := codec.ReadKey(r)
		if err != nil {
			return Request{}, err
		}
		req.Lower = decodeLower(lower)
		req.Upper = decodeUpper(upper)
	}

	return req, nil
}

func (r Request) String() string {
	switch r.Action {
	case ActionSet:
		return fmt.Sprintf("set(%s, %d bytes)", r.Key, len(r.Value))
	case ActionGet, ActionDelete:
		return fmt.Sprintf("%s(%s)", r.Action, r.Key)
	case ActionScan:
		return fmt.Sprintf("scan(%s, %s)", r.Lower, r.Upper)
	default:
		return r.Action.String()
	}
}
