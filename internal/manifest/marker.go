package manifest

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
)

// MarkerMagic is the fixed 3-byte prefix of the top-level ".vlog" marker
// file (spec §3/§6).
var MarkerMagic = [3]byte{'V', 'L', 'G'}

// FormatVersion is the current on-disk format version written into new
// ".vlog" markers.
const FormatVersion byte = 1

// InvalidVersionError is returned when the ".vlog" marker is missing or
// names a format version this build does not understand (spec §7
// "InvalidVersion(found?)").
type InvalidVersionError struct {
	Found   byte
	Present bool
}

func (e *InvalidVersionError) Error() string {
	if !e.Present {
		return "value-log: missing .vlog marker"
	}
	return errors.Newf("value-log: unsupported format version %d", errors.Safe(e.Found)).Error()
}

func writeMarker(path string) error {
	buf := make([]byte, 0, 4)
	buf = append(buf, MarkerMagic[:]...)
	buf = append(buf, FormatVersion)
	return atomicRewrite(path, buf)
}

// readMarker validates the ".vlog" marker at path, returning
// *InvalidVersionError if it is missing, truncated, or names an
// unsupported version.
func readMarker(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &InvalidVersionError{Present: false}
		}
		return errors.Wrap(err, "value-log: read .vlog marker")
	}
	if len(buf) != 4 || buf[0] != MarkerMagic[0] || buf[1] != MarkerMagic[1] || buf[2] != MarkerMagic[2] {
		return &InvalidVersionError{Present: true, Found: 0}
	}
	if buf[3] != FormatVersion {
		return &InvalidVersionError{Present: true, Found: buf[3]}
	}
	return nil
}

func markerExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// serializeManifest encodes the segment id list: u64 count, then count *
// u64 ids, all big-endian (spec §3 "Segment manifest file").
func serializeManifest(ids []uint64) []byte {
	buf := make([]byte, 8+8*len(ids))
	binary.BigEndian.PutUint64(buf[:8], uint64(len(ids)))
	for i, id := range ids {
		binary.BigEndian.PutUint64(buf[8+8*i:8+8*(i+1)], id)
	}
	return buf
}

func deserializeManifest(buf []byte) ([]uint64, error) {
	if len(buf) < 8 {
		return nil, errors.New("value-log: truncated manifest file")
	}
	count := binary.BigEndian.Uint64(buf[:8])
	want := 8 + 8*count
	if uint64(len(buf)) != want {
		return nil, errors.Newf("value-log: manifest size mismatch: want %d bytes for %d ids, got %d",
			errors.Safe(want), errors.Safe(count), errors.Safe(len(buf)))
	}
	ids := make([]uint64, count)
	for i := range ids {
		ids[i] = binary.BigEndian.Uint64(buf[8+8*i : 8+8*(i+1)])
	}
	return ids, nil
}
