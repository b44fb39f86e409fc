package status

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Status Codes
// --------------------------------------------------------------------------

// Code is the one-byte outcome carried by every response on the wire.
type Code uint8

const (
	OK            Code = iota // 0: request succeeded
	IOError                   // 1: transport failure
	UnknownAction             // 2: malformed or unrecognized request
	EngineError               // 3: backing store failure
	NotFound                  // 4: get on an absent key
	Complete                  // 5: clean end of a scan stream, not a failure

	// UnknownStatusCode is what any unrecognized wire byte decodes to.
	UnknownStatusCode Code = 0xff
)

// FromByte decodes a wire byte. It never fails: unknown values map to UnknownStatusCode.
func FromByte(b byte) Code {
	switch c := Code(b); c {
	case OK, IOError, UnknownAction, EngineError, NotFound, Complete:
		return c
	default:
		return UnknownStatusCode
	}
}

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case IOError:
		return "IOError"
	case UnknownAction:
		return "UnknownAction"
	case EngineError:
		return "EngineError"
	case NotFound:
		return "NotFound"
	case Complete:
		return "Complete"
	default:
		return "UnknownStatusCode"
	}
}

// --------------------------------------------------------------------------
// Error Type
// --------------------------------------------------------------------------

// Error pairs a status code with a message. It optionally wraps the
// lower-level error it was converted from.
type Error struct {
	Code  Code   // The status code
	Msg   string // The error message
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap exposes the converted error to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap converts err into an Error with the given code.
// If err already carries an Error somewhere in its chain, that code wins.
// Wrap returns nil for a nil err.
func Wrap(err error, code Code) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		code = se.Code
	}
	return &Error{
		Code:  code,
		Msg:   err.Error(),
		cause: err,
	}
}

// FromIO converts a transport failure. The code defaults to IOError.
func FromIO(err error) *Error {
	return Wrap(err, IOError)
}

// FromEngine converts a storage or synchronization failure. The code defaults to EngineError.
func FromEngine(err error) *Error {
	return Wrap(err, EngineError)
}

// CodeOf returns the status code carried by err.
// nil maps to OK and errors without a code map to IOError.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return IOError
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}
