package vlog

import "github.com/fjall-rs/value-log/internal/manifest"

// SegmentInfo is a read-only snapshot of one segment's metadata and GC
// counters, exposed across the package boundary without leaking the
// internal manifest.Segment type (spec §3 "Segment / BlobFile").
type SegmentInfo struct {
	ID                     uint64
	Path                   string
	ItemCount              uint64
	CompressedBytes        uint64
	TotalUncompressedBytes uint64
	MinKey, MaxKey         []byte
	StaleItems             uint64
	StaleBytes             uint64
	StaleRatio             float64
	FullyStale             bool
}

func segmentInfo(seg *manifest.Segment) SegmentInfo {
	return SegmentInfo{
		ID:                     seg.ID,
		Path:                   seg.Path,
		ItemCount:              seg.Meta.ItemCount,
		CompressedBytes:        seg.Meta.CompressedBytes,
		TotalUncompressedBytes: seg.Meta.TotalUncompressedBytes,
		MinKey:                 seg.Meta.KeyRange.Min,
		MaxKey:                 seg.Meta.KeyRange.Max,
		StaleItems:             seg.StaleItems(),
		StaleBytes:             seg.StaleBytes(),
		StaleRatio:             seg.StaleRatio(),
		FullyStale:             seg.FullyStale(),
	}
}

// Stats is the value log's aggregate view across all live segments (spec
// §3 "Space amplification").
type Stats struct {
	SegmentCount  int
	TotalBytes    uint64
	StaleBytes    uint64
	DiskSpaceUsed uint64
	StaleRatio    float64
	SpaceAmp      float64
}
