package vlog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	vlog "github.com/fjall-rs/value-log"
)

func TestCompressionRoundTripsThroughValueLog(t *testing.T) {
	dir := t.TempDir()
	vl, err := vlog.Open(dir, vlog.NewConfig(vlog.WithCompression(vlog.CompressionSnappy, vlog.SnappyCompressor{})))
	require.NoError(t, err)

	mw := vl.NewWriter()
	h, err := mw.Write([]byte("key"), []byte("a somewhat compressible value value value value"))
	require.NoError(t, err)
	_, err = vl.RegisterWriter(mw)
	require.NoError(t, err)

	got, err := vl.Get(vlog.ValueHandle{SegmentID: h.FileID, Offset: h.Offset})
	require.NoError(t, err)
	require.Equal(t, "a somewhat compressible value value value value", string(got))
}

func TestSegmentSizeOptionForcesRotation(t *testing.T) {
	dir := t.TempDir()
	vl, err := vlog.Open(dir, vlog.NewConfig(vlog.WithSegmentSizeBytes(16)))
	require.NoError(t, err)

	mw := vl.NewWriter()
	for i := 0; i < 20; i++ {
		_, err := mw.Write([]byte("key"), []byte("0123456789"))
		require.NoError(t, err)
	}
	infos, err := vl.RegisterWriter(mw)
	require.NoError(t, err)
	require.Greater(t, len(infos), 1)
}
