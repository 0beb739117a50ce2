// Package record implements the binary blob-file format: the per-record
// layout, the sequential scanner, the random-offset reader, the writer
// that produces one blob file plus its trailer, a multi-file writer that
// rotates on size, and the k-way merge reader used by GC rollover.
//
// Wire format (spec §3/§6, all multi-byte integers big-endian):
//
//	repeat:
//	  BLOB_MAGIC[4]
//	  checksum    u64
//	  key_len     u16  (1..=65535)
//	  key         [key_len]
//	  val_len     u32
//	  val         [val_len]  (optionally compressed)
//	METADATA_MAGIC[8]
//	metadata block (see meta.go)
//	trailer (256 bytes, see trailer.go)
package record

import (
	"github.com/cespare/xxhash/v2"
)

// BlobMagic precedes every record. Chosen distinct from MetadataMagic so
// the scanner can tell "another record" from "end of records" by reading
// only the first 4 bytes of MetadataMagic's 8.
var BlobMagic = []byte("VBLB")

// MaxKeyLen is the hard 16-bit key length bound the wire format imposes
// (spec §9 "Key length bound").
const MaxKeyLen = 1<<16 - 1

// Handle identifies one record's value bytes inside a blob file: the file
// (segment) it lives in, and the byte offset of the value's length prefix
// (not the key — spec §3 "points to the value record ... not to the key
// prefix").
type Handle struct {
	FileID uint64
	Offset uint64
}

// checksum hashes the stored (possibly compressed) value bytes only. This
// fixes one of spec §9's open questions: the per-record checksum covers
// the value as written to disk, never the key — confirmed by the source
// project's segment writer, which computes the checksum after compressing
// the value and before touching the key at all.
func checksum(value []byte) uint64 {
	return xxhash.Sum64(value)
}
