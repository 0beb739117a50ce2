package vlog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	vlog "github.com/fjall-rs/value-log"
)

func TestValueHandleString(t *testing.T) {
	h := vlog.ValueHandle{SegmentID: 7, Offset: 128}
	require.Equal(t, "7:128", h.String())
}

func TestIDGeneratorIsSequentialAndStartsAtSeed(t *testing.T) {
	g := vlog.NewIDGenerator(5)
	require.EqualValues(t, 5, g.Peek())
	require.EqualValues(t, 5, g.NextSegmentID())
	require.EqualValues(t, 6, g.NextSegmentID())
	require.EqualValues(t, 7, g.Peek())
}

func TestSliceCloneSharesBackingArray(t *testing.T) {
	s := vlog.NewSlice([]byte("hello"))
	clone := s.Clone()
	require.Equal(t, s.Bytes(), clone.Bytes())
	require.Same(t, &s.Bytes()[0], &clone.Bytes()[0])
}
