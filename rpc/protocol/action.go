package protocol

import (
	"bytes"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
)

// --------------------------------------------------------------------------
// Action
// --------------------------------------------------------------------------

// Action is the one byte tag that precedes every request.
type Action uint8

const (
	ActionSet        Action = 0
	ActionGet        Action = 1
	ActionDelete     Action = 2
	ActionScan       Action = 3
	ActionPing       Action = 4
	ActionNoResponse Action = 5

	// ActionUnknown is what every unrecognized tag decodes to. It is never sent.
	ActionUnknown Action = 0xff
)

// ActionFromByte decodes a request tag. Unrecognized tags map to ActionUnknown.
func ActionFromByte(b byte) Action {
	switch a := Action(b); a {
	case ActionSet, ActionGet, ActionDelete, ActionScan, ActionPing, ActionNoResponse:
		return a
	default:
		return ActionUnknown
	}
}

func (a Action) String() string {
	switch a {
	case ActionSet:
		return "set"
	case ActionGet:
		return "get"
	case ActionDelete:
		return "delete"
	case ActionScan:
		return "scan"
	case ActionPing:
		return "ping"
	case ActionNoResponse:
		return "no-response"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Scan bound sentinels
// --------------------------------------------------------------------------

/*
	Note: A scan request always carries two keys. An absent bound is sent as a
	reserved key of maximum length: all zero bytes for "no lower bound" and all
	0xFF bytes for "no upper bound". A real bound equal to one of these patterns
	is read back as absent. For the upper bound this is lossless since no key can
	order after 0xFF*MaxKeyLen. For the lower bound it widens the scan to keys
	that order before the sentinel (e.g. "" or "\x00").
*/

var (
	minKeySentinel = bytes.Repeat([]byte{0x00}, kv.MaxKeyLen)
	maxKeySentinel = bytes.Repeat([]byte{0xff}, kv.MaxKeyLen)
)

// encodeLower returns the wire key for a lower bound
func encodeLower(b kv.Bound) []byte {
	if !b.Set {
		return minKeySentinel
	}
	return b.Key
}

// encodeUpper returns the wire key for an upper bound
func encodeUpper(b kv.Bound) []byte {
	if !b.Set {
		return maxKeySentinel
	}
	return b.Key
}

// decodeLower converts a wire key back into a lower bound
func decodeLower(k kv.Key) kv.Bound {
	if bytes.Equal(k, minKeySentinel) {
		return kv.Unbounded()
	}
	return kv.Inclusive(k)
}

// decodeUpper converts a wire key back into an upper bound
func decodeUpper(k kv.Key) kv.Bound {
	if bytes.Equal(k, maxKeySentinel) {
		return kv.Unbounded()
	}
	return kv.Inclusive(k)
}
