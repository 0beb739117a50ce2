package vlog

import "context"

// IndexReader is the external key→handle index's read side (spec §6
// "IndexReader"). Not implemented by this module except by vlogtest's
// MockIndex.
type IndexReader interface {
	Get(ctx context.Context, key []byte) (ValueHandle, bool, error)
}

// IndexWriter is the external index's write side. Writes are staged until
// Finish commits them atomically; if Finish fails, none of the staged
// bindings become visible (spec §6 "IndexWriter").
type IndexWriter interface {
	InsertIndirect(ctx context.Context, key []byte, handle ValueHandle, uncompressedSize uint32) error
	Finish(ctx context.Context) error
}

// BlobCache caches resolved values keyed by (vlogID, handle) so repeated
// gets for hot handles skip the disk (spec §6 "BlobCache"). A zero-capacity
// cache must never return a hit; whether it suppresses inserts is left to
// the implementation (spec §9).
type BlobCache interface {
	Get(vlogID uint64, handle ValueHandle) ([]byte, bool)
	Insert(vlogID uint64, handle ValueHandle, value []byte)
}

// FdCache optionally caches open file descriptors keyed by (vlogID,
// fileID), avoiding a fresh os.Open per random read (spec §6 "FdCache").
// A cached descriptor may be shared across concurrent callers: the read
// path only ever reads it through ReadAt, never Seek+Read, so sharing one
// is race-free.
type FdCache interface {
	Get(vlogID uint64, fileID uint64) (*FileHandle, bool)
	Insert(vlogID uint64, fileID uint64, f *FileHandle)
}

// Compressor optionally compresses value bytes before they're written and
// decompresses them on read (spec §6 "Compressor"). The scheme is recorded
// in each segment's metadata, but readers decompress with the value log's
// configured Compressor rather than choosing one from that record.
type Compressor interface {
	Compress(in []byte) ([]byte, error)
	Decompress(in []byte) ([]byte, error)
}
