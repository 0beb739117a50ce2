package record

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fjall-rs/value-log/internal/coding"
)

// FileOpener opens a blob file for random access, optionally consulting an
// fd cache first (spec §4.3). Implementations may return the same *os.File
// for repeated calls with the same fileID if they cache descriptors; Release
// is called once the caller is done with the file for this particular call,
// and must only actually close it if the opener isn't holding onto it for
// reuse.
type FileOpener interface {
	Open(fileID uint64, path string) (*os.File, error)
	Release(f *os.File)
}

// DirectOpener always opens a fresh file descriptor and closes it on
// Release, since nothing else holds a reference.
type DirectOpener struct{}

func (DirectOpener) Open(_ uint64, path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "value-log: open segment for read")
	}
	return f, nil
}

func (DirectOpener) Release(f *os.File) { f.Close() }

// offsetReader adapts an io.ReaderAt to io.Reader by tracking its own
// read position locally instead of relying on the file's seek cursor.
// Unlike Seek+Read, this makes it safe for several offsetReaders to read
// the same *os.File concurrently at different offsets (os.File.ReadAt is
// documented safe for concurrent use), which is what lets FdCache share
// one descriptor across overlapping Get calls.
type offsetReader struct {
	r      io.ReaderAt
	offset uint64
}

func (o *offsetReader) Read(p []byte) (int, error) {
	n, err := o.r.ReadAt(p, int64(o.offset))
	o.offset += uint64(n)
	return n, err
}

// PrefetchResult is one record read ahead of the primary handle during
// GetWithPrefetch.
type PrefetchResult struct {
	Handle Handle
	Value  []byte
}

// RandomReader resolves a Handle (file-id, value-offset) to its value, and
// can optionally keep reading forward to prefetch following records (spec
// §4.3). A handle's offset always points directly at a value's length
// prefix, so the primary read needs no header parsing; prefetch resumes
// sequential scanning right after the primary value ends, where the next
// complete record begins.
type RandomReader struct {
	opener      FileOpener
	compression CompressionType
	compressor  Compressor
}

// NewRandomReader constructs a reader using opener to obtain file handles.
// If opener is nil, DirectOpener is used.
func NewRandomReader(opener FileOpener) *RandomReader {
	if opener == nil {
		opener = DirectOpener{}
	}
	return &RandomReader{opener: opener}
}

// UseCompression configures decompression applied to values read back.
func (rr *RandomReader) UseCompression(kind CompressionType, c Compressor) {
	rr.compression = kind
	rr.compressor = c
}

// ReadAt resolves the value at valueOffset without disturbing any other
// caller's position in the same file. A FileOpener may hand back a cached
// *os.File that's shared with concurrent callers, so this never seeks the
// file itself; it reads through an offsetReader positioned at valueOffset
// via pread (os.File.ReadAt), which the os package documents as safe for
// concurrent use on one *os.File. If n > 0, it then continues reading up
// to n further whole records for prefetch; each is returned with its own
// derived Handle so the caller can populate a blob cache (spec §4.3
// "get_with_prefetch").
func (rr *RandomReader) ReadAt(fileID uint64, path string, valueOffset uint64, n int) ([]byte, []PrefetchResult, error) {
	f, err := rr.opener.Open(fileID, path)
	if err != nil {
		return nil, nil, err
	}
	defer rr.opener.Release(f)

	r := &offsetReader{r: f, offset: valueOffset}
	value, consumed, err := rr.readOneValue(r)
	if err != nil {
		return nil, nil, err
	}

	var prefetched []PrefetchResult
	if n > 0 {
		scanner, err := NewScannerFromFile(f, fileID, valueOffset+consumed)
		if err != nil {
			return value, nil, nil
		}
		scanner.UseCompression(rr.compression, rr.compressor)
		for i := 0; i < n; i++ {
			next, ok, err := scanner.Next()
			if err != nil || !ok {
				break
			}
			prefetched = append(prefetched, PrefetchResult{
				Handle: Handle{FileID: fileID, Offset: next.ValueOffset},
				Value:  next.Value,
			})
		}
	}

	return value, prefetched, nil
}

// readOneValue reads a val_len/val pair starting at r's current position
// and returns the decompressed value plus the number of bytes consumed on
// disk (so the caller can resume sequential scanning right after it).
func (rr *RandomReader) readOneValue(r io.Reader) ([]byte, uint64, error) {
	valLen, err := coding.ReadUint32(r)
	if err != nil {
		return nil, 0, errors.Wrap(err, "value-log: handle does not point at a value")
	}

	raw := make([]byte, valLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, 0, coding.NewDecodeError(err)
	}

	value := raw
	if rr.compressor != nil {
		value, err = rr.compressor.Decompress(raw)
		if err != nil {
			return nil, 0, errors.Wrap(err, "value-log: decompress value")
		}
	}

	return value, 4 + uint64(valLen), nil
}
