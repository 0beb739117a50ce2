package vlog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	vlog "github.com/fjall-rs/value-log"
	"github.com/fjall-rs/value-log/vlogtest"
)

func openFresh(t *testing.T, opts ...vlog.Option) *vlog.ValueLog {
	t.Helper()
	dir := t.TempDir()
	vl, err := vlog.Open(dir, vlog.NewConfig(opts...))
	require.NoError(t, err)
	return vl
}

// Round-trip five keys through a single writer.
func TestRoundTripFiveKeys(t *testing.T) {
	vl := openFresh(t)
	index := vlogtest.NewMockIndex()

	mw := vl.NewWriter()
	kv := map[string]string{
		"apple":  "red",
		"banana": "yellow",
		"grape":  "purple",
		"kiwi":   "green",
		"plum":   "violet",
	}
	for k, v := range kv {
		h, err := mw.Write([]byte(k), []byte(v))
		require.NoError(t, err)
		index.InsertDirect([]byte(k), vlog.ValueHandle{SegmentID: h.FileID, Offset: h.Offset}, uint32(len(v)))
	}

	_, err := vl.RegisterWriter(mw)
	require.NoError(t, err)

	for k, want := range kv {
		h, ok, err := index.Get(context.Background(), []byte(k))
		require.NoError(t, err)
		require.True(t, ok)
		got, err := vl.Get(h)
		require.NoError(t, err)
		require.Equal(t, want, string(got))
	}
}

// Two writers, then a full rollover (GC compaction) that drops every
// original segment, leaving all keys readable through freshly written ones.
func TestTwoWriterFullCompaction(t *testing.T) {
	vl := openFresh(t, vlog.WithSegmentSizeBytes(0))
	index := vlogtest.NewMockIndex()

	writeBatch := func(kv map[string]string) {
		mw := vl.NewWriter()
		for k, v := range kv {
			h, err := mw.Write([]byte(k), []byte(v))
			require.NoError(t, err)
			index.InsertDirect([]byte(k), vlog.ValueHandle{SegmentID: h.FileID, Offset: h.Offset}, uint32(len(v)))
		}
		_, err := vl.RegisterWriter(mw)
		require.NoError(t, err)
	}

	writeBatch(map[string]string{"a": "1", "b": "2"})
	writeBatch(map[string]string{"c": "3", "d": "4"})

	before := vl.Segments()
	require.Len(t, before, 2)

	var victims []uint64
	for _, seg := range before {
		victims = append(victims, seg.ID)
	}

	freed, err := vl.Rollover(context.Background(), victims, index, index.Writer())
	require.NoError(t, err)
	_ = freed

	after := vl.Segments()
	require.Len(t, after, 3) // two victims + one rewritten segment

	for _, seg := range after {
		if seg.ID == before[0].ID || seg.ID == before[1].ID {
			require.True(t, seg.FullyStale)
		}
	}

	freedBytes, err := vl.DropStaleSegments()
	require.NoError(t, err)
	require.Greater(t, freedBytes, uint64(0))
	require.Len(t, vl.Segments(), 1)

	for k, want := range map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"} {
		h, ok, err := index.Get(context.Background(), []byte(k))
		require.NoError(t, err)
		require.True(t, ok)
		got, err := vl.Get(h)
		require.NoError(t, err)
		require.Equal(t, want, string(got))
	}
}

// SpaceAmpStrategy picks victims until the projected space-amp target is met.
func TestSpaceAmpStrategyTarget(t *testing.T) {
	vl := openFresh(t, vlog.WithSegmentSizeBytes(0))
	index := vlogtest.NewMockIndex()

	// Three single-key segments; mark two fully dead via a liveness scan
	// that only reports the third key as still referenced.
	var keys []string
	for i := 0; i < 3; i++ {
		mw := vl.NewWriter()
		k := string(rune('x' + i))
		h, err := mw.Write([]byte(k), []byte("0123456789"))
		require.NoError(t, err)
		index.InsertDirect([]byte(k), vlog.ValueHandle{SegmentID: h.FileID, Offset: h.Offset}, 10)
		_, err = vl.RegisterWriter(mw)
		require.NoError(t, err)
		keys = append(keys, k)
	}

	live := keys[2]
	handle, ok, err := index.Get(context.Background(), []byte(live))
	require.NoError(t, err)
	require.True(t, ok)

	vl.Scan(func(yield func(vlog.ValueHandle, uint32) bool) {
		yield(handle, 10)
	})

	stats := vl.Stats()
	require.Greater(t, stats.SpaceAmp, 1.0)

	strategy := vlog.SpaceAmpStrategy{Target: 1.2}
	victims := strategy.SelectVictims(vl.Segments(), stats)
	require.NotEmpty(t, victims)
}

// GetWithPrefetch reads ahead into later records in the same segment.
func TestPrefetchReadsAheadCorrectly(t *testing.T) {
	vl := openFresh(t, vlog.WithSegmentSizeBytes(0))
	index := vlogtest.NewMockIndex()

	mw := vl.NewWriter()
	order := []string{"k1", "k2", "k3"}
	values := map[string]string{"k1": "v1", "k2": "v2", "k3": "v3"}
	var firstHandle vlog.ValueHandle
	for i, k := range order {
		h, err := mw.Write([]byte(k), []byte(values[k]))
		require.NoError(t, err)
		vh := vlog.ValueHandle{SegmentID: h.FileID, Offset: h.Offset}
		index.InsertDirect([]byte(k), vh, uint32(len(values[k])))
		if i == 0 {
			firstHandle = vh
		}
	}
	_, err := vl.RegisterWriter(mw)
	require.NoError(t, err)

	value, n, err := vl.GetWithPrefetch(firstHandle, 2)
	require.NoError(t, err)
	require.Equal(t, "v1", string(value))
	require.Equal(t, 2, n)
}

// Recovery tolerates (and removes) an orphan file dropped into the
// segments directory between process restarts.
func TestRecoveryDropsOrphanFile(t *testing.T) {
	dir := t.TempDir()
	vl, err := vlog.Open(dir, vlog.NewConfig())
	require.NoError(t, err)

	mw := vl.NewWriter()
	_, err = mw.Write([]byte("k"), []byte("v"))
	require.NoError(t, err)
	_, err = vl.RegisterWriter(mw)
	require.NoError(t, err)

	orphanPath := filepath.Join(dir, "segments", "9999")
	require.NoError(t, os.WriteFile(orphanPath, []byte("garbage"), 0o644))

	reopened, err := vlog.Open(dir, vlog.NewConfig())
	require.NoError(t, err)
	require.Len(t, reopened.Segments(), 1)

	_, err = os.Stat(orphanPath)
	require.True(t, os.IsNotExist(err))
}

// A liveness scan run concurrently with RegisterWriter must never observe a
// half-published segment: both operations serialize on the GC gate.
func TestScanSerializesAgainstRegisterWriter(t *testing.T) {
	vl := openFresh(t, vlog.WithSegmentSizeBytes(0))
	index := vlogtest.NewMockIndex()

	mw := vl.NewWriter()
	h, err := mw.Write([]byte("k"), []byte("v"))
	require.NoError(t, err)
	vh := vlog.ValueHandle{SegmentID: h.FileID, Offset: h.Offset}
	index.InsertDirect([]byte("k"), vh, 1)
	_, err = vl.RegisterWriter(mw)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		mw2 := vl.NewWriter()
		_, werr := mw2.Write([]byte("k2"), []byte("v2"))
		require.NoError(t, werr)
		_, werr = vl.RegisterWriter(mw2)
		require.NoError(t, werr)
	}()

	report := vl.Scan(func(yield func(vlog.ValueHandle, uint32) bool) {
		yield(vh, 1)
	})
	<-done

	// The scan ran either before the second registration (one segment) or
	// after it (two segments); it never accounts for any other count.
	require.GreaterOrEqual(t, report.SegmentCount, 1)
	require.LessOrEqual(t, report.SegmentCount, 2)
}
