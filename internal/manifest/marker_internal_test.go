package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fjall-rs/value-log/internal/record"
)

func TestMarkerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".vlog")

	require.NoError(t, writeMarker(path))
	require.True(t, markerExists(path))
	require.NoError(t, readMarker(path))
}

func TestReadMarkerMissing(t *testing.T) {
	err := readMarker(filepath.Join(t.TempDir(), ".vlog"))
	require.Error(t, err)

	var ive *InvalidVersionError
	require.ErrorAs(t, err, &ive)
	require.False(t, ive.Present)
}

func TestSerializeManifestRoundTrip(t *testing.T) {
	ids := []uint64{3, 1, 42}
	buf := serializeManifest(ids)

	got, err := deserializeManifest(buf)
	require.NoError(t, err)
	require.Equal(t, ids, got)
}

func TestDeserializeManifestRejectsTruncated(t *testing.T) {
	_, err := deserializeManifest([]byte{0, 0, 0})
	require.Error(t, err)
}

func TestSegmentStaleRatioUsesUncompressedDomain(t *testing.T) {
	seg := NewSegment(0, "unused", record.Metadata{
		ItemCount:              2,
		CompressedBytes:        5,
		TotalUncompressedBytes: 20,
	})
	seg.SetStale(1, 10)
	require.InDelta(t, 0.5, seg.StaleRatio(), 1e-9)
}
