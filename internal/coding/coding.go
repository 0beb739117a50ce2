// Package coding provides the big-endian wire-format helpers shared by the
// blob record format and the segment manifest: fixed-width integer
// read/write and the typed encode/decode errors that every higher-level
// format (records, metadata, trailers, manifests) surfaces on malformed
// input.
package coding

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

// EncodeError is returned when serializing a value to its on-disk
// representation fails.
type EncodeError struct {
	Cause error
}

func (e *EncodeError) Error() string { return "encode: " + e.Cause.Error() }
func (e *EncodeError) Unwrap() error { return e.Cause }

// NewEncodeError wraps a lower-level error (almost always an I/O failure)
// as an EncodeError.
func NewEncodeError(cause error) error {
	if cause == nil {
		return nil
	}
	return &EncodeError{Cause: cause}
}

// DecodeError is returned when parsing an on-disk representation fails.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string { return "decode: " + e.Cause.Error() }
func (e *DecodeError) Unwrap() error { return e.Cause }

// NewDecodeError wraps a lower-level error as a DecodeError.
func NewDecodeError(cause error) error {
	if cause == nil {
		return nil
	}
	return &DecodeError{Cause: cause}
}

// invalidHeader builds a DecodeError describing a magic mismatch.
func invalidHeader(what string) error {
	return NewDecodeError(errors.Newf("invalid header: %s", errors.Safe(what)))
}

// InvalidHeader is a decode failure caused by a magic-number mismatch in
// the named structure (record, metadata block, trailer, manifest, ...).
func InvalidHeader(what string) error { return invalidHeader(what) }

// InvalidTag is a decode failure caused by an unrecognized enum
// discriminator byte for the named type.
func InvalidTag(what string, tag byte) error {
	return NewDecodeError(errors.Newf("invalid tag for %s: %d", errors.Safe(what), errors.Safe(tag)))
}

// WriteMagic writes an exact magic-number byte sequence.
func WriteMagic(w io.Writer, magic []byte) error {
	_, err := w.Write(magic)
	return NewEncodeError(err)
}

// ExpectMagic reads len(magic) bytes and confirms they match, returning an
// InvalidHeader error tagged with "what" if they don't.
func ExpectMagic(r io.Reader, magic []byte, what string) error {
	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(r, buf); err != nil {
		return NewDecodeError(err)
	}
	for i := range magic {
		if buf[i] != magic[i] {
			return invalidHeader(what)
		}
	}
	return nil
}

// PeekMagic reads n bytes without interpreting them, for callers
// that need to distinguish between two possible magic values (e.g. the
// record scanner deciding between "another record" and "the metadata
// block").
func PeekMagic(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, NewDecodeError(err)
	}
	return buf, nil
}

// WriteUint16, WriteUint32, WriteUint64 write big-endian fixed-width
// integers, matching the wire format in spec §3/§6 (all multi-byte
// integers are big-endian).
func WriteUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return NewEncodeError(err)
}

func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return NewEncodeError(err)
}

func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return NewEncodeError(err)
}

func ReadUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, NewDecodeError(err)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, NewDecodeError(err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, NewDecodeError(err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// WriteBytesWithLen16 writes a u16 length prefix followed by the bytes
// themselves. Used for keys, whose length is bounded to 65535 by the wire
// format.
func WriteBytesWithLen16(w io.Writer, b []byte) error {
	if err := WriteUint16(w, uint16(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return NewEncodeError(err)
}

// ReadBytesWithLen16 reads a u16 length prefix and that many bytes.
func ReadBytesWithLen16(r io.Reader) ([]byte, error) {
	n, err := ReadUint16(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, NewDecodeError(err)
	}
	return buf, nil
}
