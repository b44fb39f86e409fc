// Package codec implements the primitive encodings of the bronzeKV wire format.
//
// Keys and values travel as a 2 byte big-endian length followed by the raw
// bytes:
//
//	+--------+--------+-------------------+
//	| len hi | len lo |  len bytes of data |
//	+--------+--------+-------------------+
//
// Action tags and status codes are single bytes. Size limits are enforced on
// both sides: writers refuse oversized payloads before touching the stream,
// readers refuse oversized length prefixes.
package codec
