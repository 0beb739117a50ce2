package record_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fjall-rs/value-log/internal/record"
)

func TestMergeReaderOrdersAndDedupes(t *testing.T) {
	dir := t.TempDir()

	path0 := filepath.Join(dir, "0.vblob")
	writeSimpleSegment(t, path0, 0, [][2]string{{"a", "old-a"}, {"c", "old-c"}})

	path1 := filepath.Join(dir, "1.vblob")
	writeSimpleSegment(t, path1, 1, [][2]string{{"a", "new-a"}, {"b", "only-b"}})

	s0, err := record.NewScanner(path0, 0)
	require.NoError(t, err)
	s1, err := record.NewScanner(path1, 1)
	require.NoError(t, err)

	merge := record.NewMergeReader([]*record.Scanner{s0, s1})
	defer merge.Close()

	var got []record.MergedEntry
	for {
		entry, ok, err := merge.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, entry)
	}

	require.Len(t, got, 3)
	require.Equal(t, "a", string(got[0].Key))
	require.Equal(t, "new-a", string(got[0].Value))
	require.EqualValues(t, 1, got[0].Handle.FileID)
	require.Equal(t, "b", string(got[1].Key))
	require.Equal(t, "c", string(got[2].Key))
}
