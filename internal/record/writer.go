package record

import (
	"bufio"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fjall-rs/value-log/internal/coding"
)

// Compressor is the optional per-value compression collaborator (spec §6).
// A nil Compressor means values are stored as-is.
type Compressor interface {
	Compress(in []byte) ([]byte, error)
	Decompress(in []byte) ([]byte, error)
}

// Writer streams records into a single blob file and, on Flush, appends
// the metadata block and the fixed trailer (spec §4.1).
type Writer struct {
	FileID uint64
	Path   string

	file   *os.File
	w      *bufio.Writer
	offset uint64

	compression CompressionType
	compressor  Compressor

	itemCount         uint64
	compressedBytes   uint64
	uncompressedBytes uint64

	firstKey []byte
	lastKey  []byte

	closed bool
}

// NewWriter creates (truncating) the file at path and returns a writer
// producing fileID's blob file.
func NewWriter(path string, fileID uint64) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "value-log: create segment file")
	}
	return &Writer{
		FileID: fileID,
		Path:   path,
		file:   f,
		w:      bufio.NewWriter(f),
	}, nil
}

// UseCompression configures the compression scheme used for subsequent
// writes. The scheme is recorded once in the file's metadata block, so it
// must be set before the first Write call.
func (wr *Writer) UseCompression(kind CompressionType, c Compressor) {
	wr.compression = kind
	wr.compressor = c
}

// Offset returns the current write cursor, i.e. the byte offset the next
// record will start at.
func (wr *Writer) Offset() uint64 { return wr.offset }

// ItemCount returns the number of records written so far.
func (wr *Writer) ItemCount() uint64 { return wr.itemCount }

// Write appends one record. It fails if key is empty or longer than
// MaxKeyLen bytes. Returns the number of (possibly compressed) value bytes
// written, and the Handle of the value just written (pointing at the
// value's length prefix, per spec §3).
func (wr *Writer) Write(key, value []byte) (Handle, uint32, error) {
	if len(key) == 0 {
		return Handle{}, 0, errors.New("value-log: key must not be empty")
	}
	if len(key) > MaxKeyLen {
		return Handle{}, 0, errors.Newf("value-log: key length %d exceeds maximum %d", errors.Safe(len(key)), errors.Safe(MaxKeyLen))
	}

	if wr.firstKey == nil {
		wr.firstKey = append([]byte(nil), key...)
	}
	wr.lastKey = append(wr.lastKey[:0], key...)

	wr.uncompressedBytes += uint64(len(value))

	stored := value
	if wr.compressor != nil {
		compressed, err := wr.compressor.Compress(value)
		if err != nil {
			return Handle{}, 0, errors.Wrap(err, "value-log: compress value")
		}
		stored = compressed
	}

	crc := checksum(stored)

	if err := coding.WriteMagic(wr.w, BlobMagic); err != nil {
		return Handle{}, 0, err
	}
	if err := coding.WriteUint64(wr.w, crc); err != nil {
		return Handle{}, 0, err
	}
	if err := coding.WriteBytesWithLen16(wr.w, key); err != nil {
		return Handle{}, 0, err
	}
	valueOffset := wr.offset + uint64(len(BlobMagic)) + 8 + 2 + uint64(len(key))
	if err := coding.WriteUint32(wr.w, uint32(len(stored))); err != nil {
		return Handle{}, 0, err
	}
	if _, err := wr.w.Write(stored); err != nil {
		return Handle{}, 0, coding.NewEncodeError(err)
	}

	recordLen := uint64(len(BlobMagic)) + 8 + 2 + uint64(len(key)) + 4 + uint64(len(stored))
	wr.offset += recordLen
	wr.itemCount++
	wr.compressedBytes += uint64(len(stored))

	return Handle{FileID: wr.FileID, Offset: valueOffset}, uint32(len(stored)), nil
}

// FirstKey and LastKey return the key range observed so far; both are nil
// until at least one record has been written.
func (wr *Writer) FirstKey() []byte { return wr.firstKey }
func (wr *Writer) LastKey() []byte  { return wr.lastKey }

// Flush appends the metadata block and trailer, flushes the buffer and
// fsyncs the file (spec §4.1). It is an error to call Flush before any
// record has been written.
func (wr *Writer) Flush() (Metadata, error) {
	if wr.itemCount == 0 {
		return Metadata{}, errors.New("value-log: cannot flush an empty segment")
	}

	metadataOffset := wr.offset

	meta := Metadata{
		ItemCount:              wr.itemCount,
		CompressedBytes:        wr.compressedBytes,
		TotalUncompressedBytes: wr.uncompressedBytes,
		Compression:            wr.compression,
		KeyRange:               KeyRange{Min: wr.firstKey, Max: wr.lastKey},
	}

	if err := meta.Serialize(wr.w); err != nil {
		return Metadata{}, err
	}

	trailer := Trailer{MetadataOffset: metadataOffset}
	if err := trailer.Serialize(wr.w); err != nil {
		return Metadata{}, err
	}

	if err := wr.w.Flush(); err != nil {
		return Metadata{}, errors.Wrap(err, "value-log: flush segment writer")
	}
	if err := wr.file.Sync(); err != nil {
		return Metadata{}, errors.Wrap(err, "value-log: fsync segment file")
	}
	if err := wr.file.Close(); err != nil {
		return Metadata{}, errors.Wrap(err, "value-log: close segment file")
	}

	wr.closed = true
	return meta, nil
}

// Close releases the underlying file descriptor without flushing (used
// when a writer that produced zero records is discarded).
func (wr *Writer) Close() error {
	if wr.closed {
		return nil
	}
	wr.closed = true
	return wr.file.Close()
}
