package record_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fjall-rs/value-log/internal/record"
)

type seqIDs struct{ next uint64 }

func (s *seqIDs) NextSegmentID() uint64 {
	id := s.next
	s.next++
	return id
}

func TestMultiWriterRotatesAtTargetSize(t *testing.T) {
	dir := t.TempDir()
	mw := record.NewMultiWriter(dir, 32, &seqIDs{})

	for i := 0; i < 10; i++ {
		_, err := mw.Write([]byte("key"), []byte("0123456789"))
		require.NoError(t, err)
	}

	metas, ids, err := mw.Finish()
	require.NoError(t, err)
	require.Greater(t, len(metas), 1)
	require.Equal(t, len(metas), len(ids))

	var total uint64
	for _, m := range metas {
		total += m.ItemCount
	}
	require.EqualValues(t, 10, total)
}

func TestMultiWriterDropsEmptySegmentFile(t *testing.T) {
	dir := t.TempDir()
	mw := record.NewMultiWriter(dir, 1024, &seqIDs{})

	// Reserve a handle, forcing rotate() to open a segment file, but never
	// write a record to it.
	_, err := mw.GetNextValueHandle([]byte("key"))
	require.NoError(t, err)

	metas, ids, err := mw.Finish()
	require.NoError(t, err)
	require.Empty(t, metas)
	require.Empty(t, ids)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestMultiWriterGetNextValueHandleMatchesWrite(t *testing.T) {
	dir := t.TempDir()
	mw := record.NewMultiWriter(dir, 1024, &seqIDs{})

	predicted, err := mw.GetNextValueHandle([]byte("key"))
	require.NoError(t, err)

	actual, err := mw.Write([]byte("key"), []byte("value"))
	require.NoError(t, err)

	require.Equal(t, predicted, actual)
}

func TestMultiWriterFinishFlushesActiveSegment(t *testing.T) {
	dir := t.TempDir()
	mw := record.NewMultiWriter(dir, 1024, &seqIDs{})

	h, err := mw.Write([]byte("key"), []byte("value"))
	require.NoError(t, err)

	metas, ids, err := mw.Finish()
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Len(t, ids, 1)
	require.EqualValues(t, 1, metas[0].ItemCount)

	path := filepath.Join(dir, "0")
	_, err = os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, 0, h.FileID)
}
