package record

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fjall-rs/value-log/internal/coding"
)

// Entry is one (key, value, checksum) triple yielded by a Scanner.
// ComputedCRC is recomputed over what was actually read on disk and is not
// validated against HeaderCRC by the scanner — Matches does that
// comparison, which ValueLog.Verify relies on (spec §4.2, §7).
type Entry struct {
	Key   []byte
	Value []byte

	// ValueOffset is the byte offset of this record's value length
	// prefix within the file — the same quantity Writer.Write hands back
	// as a Handle's Offset (spec §3). Random reads seek here directly.
	ValueOffset uint64

	HeaderCRC   uint64 // checksum as read from the record header
	ComputedCRC uint64 // checksum recomputed from the on-disk value bytes
}

// Matches reports whether the stored checksum agrees with the one
// recomputed from the bytes actually on disk.
func (e Entry) Matches() bool { return e.HeaderCRC == e.ComputedCRC }

// Scanner sequentially iterates the records of one blob file, stopping
// cleanly at the metadata marker (spec §4.2). It is not restartable.
type Scanner struct {
	FileID uint64

	r           *bufio.Reader
	closer      io.Closer
	compression CompressionType
	compressor  Compressor
	terminated  bool
	offset      uint64
}

// NewScanner opens path and returns a Scanner starting at the beginning
// of the file.
func NewScanner(path string, fileID uint64) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "value-log: open segment for scan")
	}
	return NewScannerFromFile(f, fileID, 0)
}

// NewScannerFromFile wraps an already-open file, reading from startOffset
// via pread rather than seeking it, since f may be a descriptor cached and
// shared by FdCache across concurrent callers (RandomReader.ReadAt resumes
// a scan mid-file this way for prefetching).
func NewScannerFromFile(f *os.File, fileID uint64, startOffset uint64) (*Scanner, error) {
	return &Scanner{
		FileID: fileID,
		r:      bufio.NewReader(&offsetReader{r: f, offset: startOffset}),
		closer: f,
		offset: startOffset,
	}, nil
}

// UseCompression configures decompression for subsequent records.
func (s *Scanner) UseCompression(kind CompressionType, c Compressor) {
	s.compression = kind
	s.compressor = c
}

// Offset returns the scanner's current position in the file.
func (s *Scanner) Offset() uint64 { return s.offset }

// Close releases the underlying file descriptor.
func (s *Scanner) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Next returns the next record, or (Entry{}, false, nil) once the
// metadata marker (or EOF) has been reached. Any I/O or format error is
// returned as the third value.
func (s *Scanner) Next() (Entry, bool, error) {
	if s.terminated {
		return Entry{}, false, nil
	}

	magicLen := len(BlobMagic)
	head := make([]byte, magicLen)
	if _, err := io.ReadFull(s.r, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.terminated = true
			return Entry{}, false, nil
		}
		return Entry{}, false, coding.NewDecodeError(err)
	}

	if bytes.Equal(head, MetadataMagic[:magicLen]) {
		// The first 4 bytes match the metadata magic's prefix; read and
		// check the rest before committing to "end of records".
		rest := make([]byte, len(MetadataMagic)-magicLen)
		if _, err := io.ReadFull(s.r, rest); err != nil {
			return Entry{}, false, coding.NewDecodeError(err)
		}
		if !bytes.Equal(rest, MetadataMagic[magicLen:]) {
			return Entry{}, false, coding.InvalidHeader("Segment")
		}
		s.terminated = true
		return Entry{}, false, nil
	}

	if !bytes.Equal(head, BlobMagic) {
		return Entry{}, false, coding.InvalidHeader("Blob")
	}
	s.offset += uint64(magicLen)

	storedCRC, err := coding.ReadUint64(s.r)
	if err != nil {
		return Entry{}, false, err
	}
	s.offset += 8

	key, err := coding.ReadBytesWithLen16(s.r)
	if err != nil {
		return Entry{}, false, err
	}
	s.offset += 2 + uint64(len(key))

	valueOffset := s.offset

	valLen, err := coding.ReadUint32(s.r)
	if err != nil {
		return Entry{}, false, err
	}
	s.offset += 4

	raw := make([]byte, valLen)
	if _, err := io.ReadFull(s.r, raw); err != nil {
		return Entry{}, false, coding.NewDecodeError(err)
	}
	s.offset += uint64(valLen)

	recomputed := checksum(raw)

	value := raw
	if s.compressor != nil {
		value, err = s.compressor.Decompress(raw)
		if err != nil {
			return Entry{}, false, errors.Wrap(err, "value-log: decompress value")
		}
	}

	return Entry{Key: key, Value: value, ValueOffset: valueOffset, HeaderCRC: storedCRC, ComputedCRC: recomputed}, true, nil
}
