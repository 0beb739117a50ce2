package vlog

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/fjall-rs/value-log/internal/record"
)

// Rollover rewrites the live records of the segments named by victimIDs
// into fresh segments, repointing index via writer, then marks the
// victims fully stale (spec §4.7 "Rollover"). It holds the GC gate for
// its whole duration, serializing against concurrent liveness scans and
// writer registration.
//
// Crash-safety follows the spec's numbered recipe: if writer.Finish fails
// after the new segments are already registered, this returns an error but
// leaves the new files registered-but-unreferenced; a subsequent liveness
// scan reclaims them since nothing in the index points at them yet. The
// victims are only marked stale after writer.Finish succeeds, so a crash
// before that point leaves the old segments fully valid to read.
func (vl *ValueLog) Rollover(ctx context.Context, victimIDs []uint64, index IndexReader, writer IndexWriter) (uint64, error) {
	vl.gcGate.Lock()
	defer vl.gcGate.Unlock()

	before := vl.manifest.Aggregate().DiskSpaceUsed

	scanners := make([]*record.Scanner, 0, len(victimIDs))
	defer func() {
		for _, s := range scanners {
			s.Close()
		}
	}()

	for _, id := range victimIDs {
		seg, ok := vl.manifest.Get(id)
		if !ok {
			continue
		}
		s, err := record.NewScanner(seg.Path, seg.ID)
		if err != nil {
			return 0, err
		}
		s.UseCompression(seg.Meta.Compression, adaptCompressor(vl.cfg.compression))
		scanners = append(scanners, s)
	}

	merge := record.NewMergeReader(scanners)
	mw := vl.NewWriter()

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		entry, ok, err := merge.Next()
		if err != nil {
			return 0, errors.Wrap(err, "value-log: rollover: merge read")
		}
		if !ok {
			break
		}

		sourceSegmentID := entry.Handle.FileID
		current, found, err := index.Get(ctx, entry.Key)
		if err != nil {
			return 0, errors.Wrap(err, "value-log: rollover: index lookup")
		}
		if !found || current.SegmentID < sourceSegmentID {
			// Deleted from the index, or the index points at an older
			// segment than this record's; don't carry it forward.
			continue
		}

		newHandle, err := mw.Write(entry.Key, entry.Value)
		if err != nil {
			return 0, errors.Wrap(err, "value-log: rollover: write")
		}

		vh := ValueHandle{SegmentID: newHandle.FileID, Offset: newHandle.Offset}
		if err := writer.InsertIndirect(ctx, entry.Key, vh, uint32(len(entry.Value))); err != nil {
			return 0, errors.Wrap(err, "value-log: rollover: stage index binding")
		}
	}

	if _, err := vl.manifest.Register(mw); err != nil {
		return 0, errors.Wrap(err, "value-log: rollover: register rewritten segments")
	}

	if err := writer.Finish(ctx); err != nil {
		// New segments are durable and registered but unreferenced by the
		// index; the old (victim) segments are untouched and still fully
		// valid to read. Return the error without marking anything stale.
		return 0, errors.Wrap(err, "value-log: rollover: commit index remapping")
	}

	for _, id := range victimIDs {
		if seg, ok := vl.manifest.Get(id); ok {
			seg.MarkFullyStale()
		}
	}

	after := vl.manifest.Aggregate().DiskSpaceUsed
	if after >= before {
		return 0, nil
	}
	return before - after, nil
}
