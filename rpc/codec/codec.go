package codec

import (
	"encoding/binary"
	"io"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/ValentinKolb/bronzeKV/lib/status"
	"github.com/cockroachdb/errors"
)

// lenPrefixSize is the size of the big-endian length that precedes every key and value
const lenPrefixSize = 2

var (
	ErrKeyTooLong   = errors.Newf("codec: key length exceeds %d", kv.MaxKeyLen)
	ErrValueTooLong = errors.Newf("codec: value length exceeds %d", kv.MaxValueLen)
)

// --------------------------------------------------------------------------
// Keys and Values
// --------------------------------------------------------------------------

// WriteKey writes the 2 byte length of key followed by its raw bytes and
// returns the number of bytes written. A key longer than kv.MaxKeyLen is
// rejected with ErrKeyTooLong before anything is written.
func WriteKey(w io.Writer, key []byte) (int, error) {
	if len(key) > kv.MaxKeyLen {
		return 0, errors.Wrapf(ErrKeyTooLong, "got %d", len(key))
	}
	return writeBytes(w, key)
}

// WriteValue writes the 2 byte length of value followed by its raw bytes and
// returns the number of bytes written. A value longer than kv.MaxValueLen is
// rejected with ErrValueTooLong before anything is written.
func WriteValue(w io.Writer, value []byte) (int, error) {
	if len(value) > kv.MaxValueLen {
		return 0, errors.Wrapf(ErrValueTooLong, "got %d", len(value))
	}
	return writeBytes(w, value)
}

// ReadKey reads a length-prefixed key. The returned key is never nil.
func ReadKey(r io.Reader) (kv.Key, error) {
	b, err := readBytes(r, kv.MaxKeyLen, ErrKeyTooLong)
	return b, err
}

// ReadValue reads a length-prefixed value. The returned value is never nil.
func ReadValue(r io.Reader) (kv.Value, error) {
	b, err := readBytes(r, kv.MaxValueLen, ErrValueTooLong)
	return b, err
}

// --------------------------------------------------------------------------
// Single Bytes (action tags and status codes)
// --------------------------------------------------------------------------

// WriteStatus writes a single status byte.
func WriteStatus(w io.Writer, code status.Code) (int, error) {
	return WriteByte(w, byte(code))
}

// ReadStatus reads a single status byte. Unknown bytes decode to status.UnknownStatusCode.
func ReadStatus(r io.Reader) (status.Code, error) {
	b, err := ReadByte(r)
	if err != nil {
		return status.UnknownStatusCode, err
	}
	return status.FromByte(b), nil
}

// WriteByte writes exactly one byte.
func WriteByte(w io.Writer, b byte) (int, error) {
	n, err := w.Write([]byte{b})
	if err != nil {
		return n, errors.Wrap(err, "codec: write byte")
	}
	return n, nil
}

// ReadByte reads exactly one byte. It returns io.EOF unwrapped if the
// stream ended before the byte, so callers can detect a clean close.
func ReadByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// writeBytes writes the length prefix and the payload with a single Write call
func writeBytes(w io.Writer, data []byte) (int, error) {
	buf := make([]byte, lenPrefixSize+len(data))
	binary.BigEndian.PutUint16(buf[:lenPrefixSize], uint16(len(data)))
	copy(buf[lenPrefixSize:], data)

	n, err := w.Write(buf)
	if err != nil {
		return n, errors.Wrap(err, "codec: write")
	}
	return n, nil
}

// readBytes reads a length prefix and then exactly that many bytes.
// A key or value is always part of a larger message, so an EOF here is unexpected.
func readBytes(r io.Reader, limit int, tooLong error) ([]byte, error) {
	var header [lenPrefixSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.Wrap(unexpected(err), "codec: read length")
	}

	length := int(binary.BigEndian.Uint16(header[:]))
	if length > limit {
		return nil, errors.Wrapf(tooLong, "got %d", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(unexpected(err), "codec: read data")
	}
	return data, nil
}

// unexpected turns a bare io.EOF into io.ErrUnexpectedEOF
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
