package record_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fjall-rs/value-log/internal/record"
)

func writeSimpleSegment(t *testing.T, path string, fileID uint64, kv [][2]string) record.Metadata {
	t.Helper()
	w, err := record.NewWriter(path, fileID)
	require.NoError(t, err)

	var handles []record.Handle
	for _, pair := range kv {
		h, _, err := w.Write([]byte(pair[0]), []byte(pair[1]))
		require.NoError(t, err)
		handles = append(handles, h)
	}
	meta, err := w.Flush()
	require.NoError(t, err)
	return meta
}

func TestWriterScannerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.vblob")

	kv := [][2]string{{"alpha", "1"}, {"beta", "2"}, {"gamma", "3"}}
	meta := writeSimpleSegment(t, path, 0, kv)

	require.EqualValues(t, 3, meta.ItemCount)
	require.Equal(t, []byte("alpha"), meta.KeyRange.Min)
	require.Equal(t, []byte("gamma"), meta.KeyRange.Max)

	scanner, err := record.NewScanner(path, 0)
	require.NoError(t, err)
	defer scanner.Close()

	var got [][2]string
	for {
		entry, ok, err := scanner.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.True(t, entry.Matches())
		got = append(got, [2]string{string(entry.Key), string(entry.Value)})
	}
	require.Equal(t, kv, got)
}

func TestWriterRejectsEmptyKey(t *testing.T) {
	dir := t.TempDir()
	w, err := record.NewWriter(filepath.Join(dir, "0.vblob"), 0)
	require.NoError(t, err)
	_, _, err = w.Write(nil, []byte("x"))
	require.Error(t, err)
}

func TestFlushEmptySegmentFails(t *testing.T) {
	dir := t.TempDir()
	w, err := record.NewWriter(filepath.Join(dir, "0.vblob"), 0)
	require.NoError(t, err)
	_, err = w.Flush()
	require.Error(t, err)
	require.NoError(t, w.Close())
}

func TestRandomReaderSeeksToValueOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.vblob")

	w, err := record.NewWriter(path, 7)
	require.NoError(t, err)
	h1, _, err := w.Write([]byte("k1"), []byte("value-one"))
	require.NoError(t, err)
	h2, _, err := w.Write([]byte("k2"), []byte("value-two"))
	require.NoError(t, err)
	_, err = w.Flush()
	require.NoError(t, err)

	rr := record.NewRandomReader(nil)
	v1, prefetched, err := rr.ReadAt(7, path, h1.Offset, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("value-one"), v1)
	require.Len(t, prefetched, 1)
	require.Equal(t, h2.Offset, prefetched[0].Handle.Offset)
	require.Equal(t, []byte("value-two"), prefetched[0].Value)

	v2, _, err := rr.ReadAt(7, path, h2.Offset, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("value-two"), v2)
}

func TestScannerStopsAtMetadataMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.vblob")
	writeSimpleSegment(t, path, 0, [][2]string{{"only", "value"}})

	scanner, err := record.NewScanner(path, 0)
	require.NoError(t, err)
	defer scanner.Close()

	_, ok, err := scanner.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = scanner.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.vblob")
	writeSimpleSegment(t, path, 0, [][2]string{{"k", "original-value"}})

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a byte inside the value region (after magic+crc+keylen+key).
	idx := len(record.BlobMagic) + 8 + 2 + len("k") + 4
	raw[idx] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	scanner, err := record.NewScanner(path, 0)
	require.NoError(t, err)
	defer scanner.Close()

	entry, ok, err := scanner.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, entry.Matches())
}
