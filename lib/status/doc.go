// Package status defines the closed set of outcome codes used on the wire
// and the Error type that carries one of them.
//
// Codes:
//   - OK, NotFound: regular outcomes
//   - IOError: the transport failed
//   - UnknownAction: the peer sent a request that could not be decoded
//   - EngineError: the storage engine failed
//   - Complete: terminator of a scan stream, never surfaced as a failure
//   - UnknownStatusCode: any byte outside the known range
//
// Lower-level errors are converted with FromIO and FromEngine. The
// converted Error keeps its cause, so errors.Is and errors.As still reach
// the original error.
package status
