package kv

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	MaxKeyLen   = 1 << 8  // 256 bytes
	MaxValueLen = 1 << 12 // 4096 bytes
)

var (
	ErrKeyTooLong   = errors.Newf("key exceeds %d bytes", MaxKeyLen)
	ErrValueTooLong = errors.Newf("value exceeds %d bytes", MaxValueLen)
)

// --------------------------------------------------------------------------
// Key
// --------------------------------------------------------------------------

// Key is an owned byte string of at most MaxKeyLen bytes.
// Keys are totally ordered by plain lexicographic byte order: the first
// differing byte decides, and if one key is a prefix of the other, the
// shorter key orders first.
type Key []byte

// Compare returns -1, 0 or +1 if k is less than, equal to or greater than other.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k, other)
}

// Less reports whether k orders strictly before other.
func (k Key) Less(other Key) bool {
	return bytes.Compare(k, other) < 0
}

// Equal reports whether both keys have the same length and bytes.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k, other)
}

// Clone returns a copy of the key that does not share memory with k.
// A nil key clones to an empty, non-nil key.
func (k Key) Clone() Key {
	c := make(Key, len(k))
	copy(c, k)
	return c
}

// Validate checks the key against MaxKeyLen.
func (k Key) Validate() error {
	if len(k) > MaxKeyLen {
		return errors.Wrapf(ErrKeyTooLong, "got %d bytes", len(k))
	}
	return nil
}

func (k Key) String() string {
	return fmt.Sprintf("%q", []byte(k))
}

// --------------------------------------------------------------------------
// Value
// --------------------------------------------------------------------------

// Value is an owned byte string of at most MaxValueLen bytes. Values carry no order.
type Value []byte

// Clone returns a copy of the value that does not share memory with v.
func (v Value) Clone() Value {
	c := make(Value, len(v))
	copy(c, v)
	return c
}

// Validate checks the value against MaxValueLen.
func (v Value) Validate() error {
	if len(v) > MaxValueLen {
		return errors.Wrapf(ErrValueTooLong, "got %d bytes", len(v))
	}
	return nil
}

// --------------------------------------------------------------------------
// Entry
// --------------------------------------------------------------------------

// Entry is a single key-value pair, the unit exchanged during a scan.
type Entry struct {
	Key   Key
	Value Value
}

// Clone deep-copies the entry.
func (e Entry) Clone() Entry {
	return Entry{Key: e.Key.Clone(), Value: e.Value.Clone()}
}

func (e Entry) String() string {
	return fmt.Sprintf("%s=%q", e.Key, []byte(e.Value))
}

// --------------------------------------------------------------------------
// Bound
// --------------------------------------------------------------------------

// Bound is an optional, inclusive limit of a range scan.
// The zero value is unbounded.
type Bound struct {
	Key Key
	Set bool
}

// Unbounded returns a bound that admits every key.
func Unbounded() Bound {
	return Bound{}
}

// Inclusive returns a bound at key k.
func Inclusive(k Key) Bound {
	return Bound{Key: k, Set: true}
}

func (b Bound) String() string {
	if !b.Set {
		return "<none>"
	}
	return b.Key.String()
}

// InRange reports whether lower <= k <= upper, ignoring bounds that are not set.
func InRange(k Key, lower, upper Bound) bool {
	if lower.Set && k.Less(lower.Key) {
		return false
	}
	if upper.Set && upper.Key.Less(k) {
		return false
	}
	return true
}
