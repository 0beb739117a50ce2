package record

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/fjall-rs/value-log/internal/coding"
)

// TrailerMagic is the fixed marker at the very end of every blob file.
// Spec §3/§6: "VLOGTRL1".
var TrailerMagic = []byte("VLOGTRL1")

// TrailerSize is the fixed size, in bytes, of the trailer block. A file is
// considered fully written iff this magic is present at filesize-256
// (spec §3 "Trailer implies completeness").
const TrailerSize = 256

// Trailer is the fixed-size footer, grounded on the fixed-trailer +
// variable-metadata-block pattern from the teacher's sstable footer
// (offset/length handles + magic, read with a single tail read) — here
// specialized to a single metadata-block pointer rather than a handle
// table, per spec §9's "richer" trailer layout.
type Trailer struct {
	MetadataOffset uint64
}

// Serialize writes the trailer: metadata offset, zero padding, then magic,
// for a total of exactly TrailerSize bytes.
func (t Trailer) Serialize(w io.Writer) error {
	if err := coding.WriteUint64(w, t.MetadataOffset); err != nil {
		return err
	}
	padding := TrailerSize - 8 - len(TrailerMagic)
	if padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return coding.NewEncodeError(err)
		}
	}
	return coding.WriteMagic(w, TrailerMagic)
}

// DeserializeTrailer parses a TrailerSize-byte buffer (typically the last
// TrailerSize bytes of a blob file, read in a single tail read as the
// teacher's readFooter does for sstable footers).
func DeserializeTrailer(buf []byte) (Trailer, error) {
	if len(buf) != TrailerSize {
		return Trailer{}, coding.NewDecodeError(
			errors.Newf("trailer buffer must be %d bytes, got %d", errors.Safe(TrailerSize), errors.Safe(len(buf))))
	}
	metadataOffset := binary.BigEndian.Uint64(buf[:8])
	magicOff := TrailerSize - len(TrailerMagic)
	for i, b := range TrailerMagic {
		if buf[magicOff+i] != b {
			return Trailer{}, coding.InvalidHeader("SegmentTrailer")
		}
	}
	return Trailer{MetadataOffset: metadataOffset}, nil
}
