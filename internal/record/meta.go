package record

import (
	"io"

	"github.com/fjall-rs/value-log/internal/coding"
)

// MetadataMagic precedes the metadata block that follows the last record in
// a blob file. Spec §3/§6: "VLOGSMD1".
var MetadataMagic = []byte("VLOGSMD1")

// CompressionType identifies the compression scheme recorded for a blob
// file. The scheme is per-file, not hard-coded in readers (spec §9).
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

func writeCompressionType(w io.Writer, c CompressionType) error {
	var buf [1]byte
	buf[0] = byte(c)
	_, err := w.Write(buf[:])
	return coding.NewEncodeError(err)
}

func readCompressionType(r io.Reader) (CompressionType, error) {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, coding.NewDecodeError(err)
	}
	tag := buf[0]
	switch tag {
	case byte(CompressionNone), byte(CompressionSnappy), byte(CompressionZstd):
		return CompressionType(tag), nil
	default:
		return 0, coding.InvalidTag("CompressionType", tag)
	}
}

// KeyRange is the inclusive [min, max] user-key range covered by a blob
// file, computed from the first and last keys written to it.
type KeyRange struct {
	Min []byte
	Max []byte
}

func (kr KeyRange) serialize(w io.Writer) error {
	if err := coding.WriteBytesWithLen16(w, kr.Min); err != nil {
		return err
	}
	return coding.WriteBytesWithLen16(w, kr.Max)
}

func deserializeKeyRange(r io.Reader) (KeyRange, error) {
	min, err := coding.ReadBytesWithLen16(r)
	if err != nil {
		return KeyRange{}, err
	}
	max, err := coding.ReadBytesWithLen16(r)
	if err != nil {
		return KeyRange{}, err
	}
	return KeyRange{Min: min, Max: max}, nil
}

// Metadata is the per-file summary persisted right after the last record
// and referenced by the trailer (spec §3 "Segment / BlobFile").
type Metadata struct {
	ItemCount              uint64
	CompressedBytes        uint64
	TotalUncompressedBytes uint64
	Compression            CompressionType
	KeyRange               KeyRange
}

// Serialize writes the metadata block, preceded by its magic.
func (m Metadata) Serialize(w io.Writer) error {
	if err := coding.WriteMagic(w, MetadataMagic); err != nil {
		return err
	}
	if err := coding.WriteUint64(w, m.ItemCount); err != nil {
		return err
	}
	if err := coding.WriteUint64(w, m.CompressedBytes); err != nil {
		return err
	}
	if err := coding.WriteUint64(w, m.TotalUncompressedBytes); err != nil {
		return err
	}
	if err := writeCompressionType(w, m.Compression); err != nil {
		return err
	}
	return m.KeyRange.serialize(w)
}

// DeserializeMetadata reads a metadata block. The caller must already have
// consumed the metadata magic (the blob record scanner needs to peek at it
// first to distinguish "another record" from "end of records").
func DeserializeMetadata(r io.Reader) (Metadata, error) {
	itemCount, err := coding.ReadUint64(r)
	if err != nil {
		return Metadata{}, err
	}
	compressedBytes, err := coding.ReadUint64(r)
	if err != nil {
		return Metadata{}, err
	}
	totalUncompressedBytes, err := coding.ReadUint64(r)
	if err != nil {
		return Metadata{}, err
	}
	compression, err := readCompressionType(r)
	if err != nil {
		return Metadata{}, err
	}
	keyRange, err := deserializeKeyRange(r)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		ItemCount:              itemCount,
		CompressedBytes:        compressedBytes,
		TotalUncompressedBytes: totalUncompressedBytes,
		Compression:            compression,
		KeyRange:               keyRange,
	}, nil
}
