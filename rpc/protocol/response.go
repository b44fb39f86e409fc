package protocol

import (
	"fmt"
	"io"
	"iter"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/ValentinKolb/bronzeKV/lib/status"
	"github.com/ValentinKolb/bronzeKV/rpc/codec"
	"github.com/cockroachdb/errors"
)

// ErrStreamConsumed is yielded when the entries of a scan response are iterated twice.
var ErrStreamConsumed = errors.New("protocol: scan stream already consumed")

// --------------------------------------------------------------------------
// Response Structure
// --------------------------------------------------------------------------

// ResponseKind selects the payload layout that follows the leading status byte.
type ResponseKind uint8

const (
	KindStatus      ResponseKind = iota // status byte only
	KindSingleValue                     // OK followed by a value
	KindScanner                         // OK followed by a stream of entries
)

// Response is the server's reply to a single request.
//
// On the sending side a scanner response carries Entries, a lazy sequence that
// is drained while encoding. On the receiving side it carries Stream, which
// decodes entries straight from the connection.
type Response struct {
	Kind   ResponseKind
	Status status.Code // Used for: KindStatus
	Value  kv.Value    // Used for: KindSingleValue

	Entries iter.Seq2[kv.Entry, error] // Used for: KindScanner (encoding)
	Stream  *EntryReader               // Used for: KindScanner (decoding)
}

// StatusResponse creates a response consisting of a single status byte
func StatusResponse(code status.Code) Response {
	return Response{Kind: KindStatus, Status: code}
}

// ValueResponse creates a successful response carrying one value
func ValueResponse(value kv.Value) Response {
	return Response{Kind: KindSingleValue, Status: status.OK, Value: value}
}

// ScannerResponse creates a successful response that streams the given entries
func ScannerResponse(entries iter.Seq2[kv.Entry, error]) Response {
	return Response{Kind: KindScanner, Status: status.OK, Entries: entries}
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// WriteTo encodes the response and returns the number of bytes written.
//
// For a scanner response every entry is written as OK, key, value and the
// stream is terminated with Complete. If the entry sequence yields an error,
// that error's status code is written as the terminator (EngineError when the
// error carries no failure code) and the error is returned.
func (r Response) WriteTo(w io.Writer) (int64, error) {
	switch r.Kind {
	case KindStatus:
		n, err := codec.WriteStatus(w, r.Status)
		return int64(n), err

	case KindSingleValue:
		counter, err := codec.WriteStatus(w, status.OK)
		if err != nil {
			return int64(counter), err
		}
		n, err := codec.WriteValue(w, r.Value)
		return int64(counter + n), err

	case KindScanner:
		return r.writeEntries(w)

	default:
		panic(fmt.Sprintf("protocol: unhandled response kind %d", r.Kind))
	}
}

func (r Response) writeEntries(w io.Writer) (int64, error) {
	counter, err := codec.WriteStatus(w, status.OK)
	if err != nil {
		return int64(counter), err
	}

	n := 0
	if r.Entries != nil {
		for entry, iterErr := range r.Entries {
			if iterErr != nil {
				code := status.FromEngine(iterErr).Code
				if code == status.OK || code == status.Complete {
					code = status.EngineError
				}
				n, err = codec.WriteStatus(w, code)
				counter += n
				if err != nil {
					return int64(counter), err
				}
				return int64(counter), iterErr
			}

			if n, err = codec.WriteStatus(w, status.OK); err != nil {
				return int64(counter + n), err
			}
			counter += n
			if n, err = codec.WriteKey(w, entry.Key); err != nil {
				return int64(counter + n), err
			}
			counter += n
			if n, err = codec.WriteValue(w, entry.Value); err != nil {
				return int64(counter + n), err
			}
			counter += n
		}
	}

	n, err = codec.WriteStatus(w, status.Complete)
	return int64(counter + n), err
}

// ReadResponse decodes the response to a request with the given action.
//
// A leading OK is interpreted according to the action. Any other status byte
// yields a KindStatus response. For Scan the returned Stream reads lazily from
// r, so r must not be used for anything else until the stream is finished.
func ReadResponse(r io.Reader, action Action) (Response, error) {
	code, err := codec.ReadStatus(r)
	if err != nil {
		return Response{}, err
	}
	if code != status.OK {
		return StatusResponse(code), nil
	}

	switch action {
	case ActionGet:
		value, err := codec.ReadValue(r)
		if err != nil {
			return Response{}, err
		}
		return ValueResponse(value), nil
	case ActionScan:
		return Response{Kind: KindScanner, Status: status.OK, Stream: NewEntryReader(r)}, nil
	default:
		return StatusResponse(status.OK), nil
	}
}

// --------------------------------------------------------------------------
// Entry Stream Decoding
// --------------------------------------------------------------------------

// EntryReader decodes the entry stream of a scan response.
// It never reads past the terminating status.
//
// Thread-safety: Not thread-safe.
type EntryReader struct {
	r    io.Reader
	done bool
	err  error // terminal error, nil after a clean Complete
	used bool
}

// NewEntryReader creates a reader for the entries that follow a leading OK
func NewEntryReader(r io.Reader) *EntryReader {
	return &EntryReader{r: r}
}

// Next decodes the next entry. It returns io.EOF after a clean Complete and
// the terminal error (a *status.Error) for every call after a failure.
func (er *EntryReader) Next() (kv.Entry, error) {
	if er.done {
		if er.err != nil {
			return kv.Entry{}, er.err
		}
		return kv.Entry{}, io.EOF
	}

	code, err := codec.ReadStatus(er.r)
	if err != nil {
		return er.fail(status.FromIO(unexpected(err)))
	}

	switch code {
	case status.OK:
		key, err := codec.ReadKey(er.r)
		if err != nil {
			return er.fail(status.FromIO(err))
		}
		value, err := codec.ReadValue(er.r)
		if err != nil {
			return er.fail(status.FromIO(err))
		}
		return kv.Entry{Key: key, Value: value}, nil
	case status.Complete:
		er.done = true
		return kv.Entry{}, io.EOF
	default:
		return er.fail(status.New(code, "scan stream terminated by server"))
	}
}

// All returns the remaining entries as a sequence. The sequence can only be
// ranged over once, a second iteration yields ErrStreamConsumed.
func (er *EntryReader) All() iter.Seq2[kv.Entry, error] {
	return func(yield func(kv.Entry, error) bool) {
		if er.used {
			yield(kv.Entry{}, ErrStreamConsumed)
			return
		}
		er.used = true

		for {
			entry, err := er.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(kv.Entry{}, err)
				return
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// Drain reads and discards the rest of the stream so the underlying
// connection is positioned at the next response. It returns the terminal
// error, or nil if the stream ended with Complete.
func (er *EntryReader) Drain() error {
	er.used = true
	for {
		_, err := er.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Done reports whether the terminating status has been read
func (er *EntryReader) Done() bool {
	return er.done
}

func (er *EntryReader) fail(err error) (kv.Entry, error) {
	er.done = true
	er.err = err
	return kv.Entry{}, err
}

// unexpected turns a bare io.EOF into io.ErrUnexpectedEOF
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
