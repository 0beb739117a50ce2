package record

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"
)

// IDGenerator issues monotonically increasing segment (blob file) ids. The
// value-log facade owns the single instance shared across writers and GC
// rollover (spec §4.9 "ids are never reused").
type IDGenerator interface {
	NextSegmentID() uint64
}

// MultiWriter chains Writers together, rotating to a fresh segment file
// once the active one reaches targetSize bytes (spec §4.4). It is used both
// for the live write path and for GC rollover, where it is fed by a
// MergeReader instead of direct callers.
type MultiWriter struct {
	dir         string
	targetSize  uint64
	ids         IDGenerator
	compression CompressionType
	compressor  Compressor

	active      *Writer
	finished    []Metadata
	finishedIDs []uint64
}

// NewMultiWriter creates a MultiWriter rooted at dir. No file is created
// until the first Write call.
func NewMultiWriter(dir string, targetSize uint64, ids IDGenerator) *MultiWriter {
	return &MultiWriter{dir: dir, targetSize: targetSize, ids: ids}
}

// UseCompression configures compression for every segment the writer opens
// from this point on, including the one currently active.
func (mw *MultiWriter) UseCompression(kind CompressionType, c Compressor) {
	mw.compression = kind
	mw.compressor = c
	if mw.active != nil {
		mw.active.UseCompression(kind, c)
	}
}

// segmentPath must produce exactly the path internal/manifest reconstructs
// for the same id (spec §6: segment filenames are the decimal id, no
// extension) — the two are never consulted together, so a mismatch here
// would silently point every reader at a file that doesn't exist.
func (mw *MultiWriter) segmentPath(id uint64) string {
	return filepath.Join(mw.dir, strconv.FormatUint(id, 10))
}

func (mw *MultiWriter) rotate() error {
	if mw.active != nil {
		if err := mw.finishActive(); err != nil {
			return err
		}
	}
	id := mw.ids.NextSegmentID()
	w, err := NewWriter(mw.segmentPath(id), id)
	if err != nil {
		return err
	}
	w.UseCompression(mw.compression, mw.compressor)
	mw.active = w
	return nil
}

func (mw *MultiWriter) finishActive() error {
	if mw.active == nil {
		return nil
	}
	if mw.active.ItemCount() == 0 {
		path := mw.active.Path
		closeErr := mw.active.Close()
		mw.active = nil
		if closeErr != nil {
			return closeErr
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "value-log: remove empty segment file")
		}
		return nil
	}
	meta, err := mw.active.Flush()
	if err != nil {
		return err
	}
	mw.finished = append(mw.finished, meta)
	mw.finishedIDs = append(mw.finishedIDs, mw.active.FileID)
	mw.active = nil
	return nil
}

// GetNextValueHandle reports the Handle the next Write call for key would
// produce, without writing anything. Callers use this to learn a value's
// address before the write actually lands (spec §4.4).
func (mw *MultiWriter) GetNextValueHandle(key []byte) (Handle, error) {
	if mw.active == nil || (mw.targetSize > 0 && mw.active.Offset() >= mw.targetSize) {
		if err := mw.rotate(); err != nil {
			return Handle{}, err
		}
	}
	offset := mw.active.Offset() + uint64(len(BlobMagic)) + 8 + 2 + uint64(len(key))
	return Handle{FileID: mw.active.FileID, Offset: offset}, nil
}

// Write appends (key, value) to the active segment, rotating first if the
// active segment has already reached targetSize. The returned Handle always
// matches what GetNextValueHandle would have reported beforehand.
func (mw *MultiWriter) Write(key, value []byte) (Handle, error) {
	if mw.active == nil || (mw.targetSize > 0 && mw.active.Offset() >= mw.targetSize) {
		if err := mw.rotate(); err != nil {
			return Handle{}, err
		}
	}
	handle, _, err := mw.active.Write(key, value)
	if err != nil {
		return Handle{}, errors.Wrap(err, "value-log: write record")
	}
	return handle, nil
}

// Finish flushes the active segment (if any) and returns the metadata for
// every segment produced, in the order they were created.
func (mw *MultiWriter) Finish() ([]Metadata, []uint64, error) {
	if err := mw.finishActive(); err != nil {
		return nil, nil, err
	}
	return mw.finished, mw.finishedIDs, nil
}
