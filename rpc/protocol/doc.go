// Package protocol defines the request and response messages of bronzeKV and
// their binary encoding.
//
// A request is a one byte action tag followed by its payload:
//
//	Set:        tag | key | value
//	Get/Delete: tag | key
//	Scan:       tag | lower key | upper key
//	Ping:       tag
//	NoResponse: tag            (no reply is sent)
//
// A response always starts with a status byte. If it is OK the payload
// depends on the request: Get is followed by a value, Scan by a stream of
// entries. Each entry is prefixed with its own status byte, OK for an entry
// and Complete for the clean end of the stream:
//
//	OK | (OK key value)* | Complete
//
// Any other status inside the stream terminates it with an error. Encoding
// of keys, values and status bytes is implemented by package codec.
package protocol
