// Package kv holds the domain types shared by every layer of bronzeKV:
// Key, Value, Entry and the optional scan Bound.
//
// Keys and values are plain byte strings with protocol-level size limits
// (MaxKeyLen, MaxValueLen). Keys are ordered lexicographically by byte,
// with a proper prefix ordering before any longer key ("haha" < "hahah").
//
// Types in this package never reference memory owned by a caller once they
// are stored; engines call Clone on the way in and on the way out.
package kv
