package manifest

import (
	"sync/atomic"

	"github.com/fjall-rs/value-log/internal/record"
)

// Segment is the manifest's in-memory descriptor for one blob file (spec
// §3 "Segment / BlobFile"). It is immutable except for its GC counters,
// which are mutated in place by liveness scans via atomic stores/loads so
// readers never need to take the manifest lock just to read stats.
type Segment struct {
	ID   uint64
	Path string
	Meta record.Metadata

	staleItems atomic.Uint64
	staleBytes atomic.Uint64
}

// NewSegment builds a Segment descriptor for a freshly registered blob
// file. GC counters start at zero.
func NewSegment(id uint64, path string, meta record.Metadata) *Segment {
	return &Segment{ID: id, Path: path, Meta: meta}
}

// StaleItems and StaleBytes return the segment's current liveness counters.
func (s *Segment) StaleItems() uint64 { return s.staleItems.Load() }
func (s *Segment) StaleBytes() uint64 { return s.staleBytes.Load() }

// SetStale overwrites the stale counters; used by a liveness scan once it
// has computed (total - observed) for a segment (spec §4.7).
func (s *Segment) SetStale(items, bytes uint64) {
	s.staleItems.Store(items)
	s.staleBytes.Store(bytes)
}

// MarkFullyStale sets both counters to the segment's full item/byte
// counts — used when a segment is absent from a liveness scan's
// observations (no incoming references) or when rollover retires a victim
// outright (spec §4.7 step 7).
func (s *Segment) MarkFullyStale() {
	s.SetStale(s.Meta.ItemCount, s.Meta.TotalUncompressedBytes)
}

// FullyStale reports whether every item in the segment is stale.
func (s *Segment) FullyStale() bool {
	return s.Meta.ItemCount > 0 && s.staleItems.Load() == s.Meta.ItemCount
}

// StaleRatio is the fraction of the segment's bytes that are stale, in
// [0, 1]. staleBytes is tracked in the same uncompressed domain as
// TotalUncompressedBytes (spec §4.7's liveness scan works from caller-
// supplied uncompressed sizes), so the ratio is computed against that, not
// the on-disk compressed size. A segment with zero uncompressed bytes
// reports 0.
func (s *Segment) StaleRatio() float64 {
	if s.Meta.TotalUncompressedBytes == 0 {
		return 0
	}
	return float64(s.staleBytes.Load()) / float64(s.Meta.TotalUncompressedBytes)
}
