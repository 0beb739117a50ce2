package vlog

import "sync/atomic"

// globalValueLogID is a process-wide monotonic counter assigning each
// opened ValueLog a unique id, used as the blob-cache key prefix so
// multiple value logs can share one cache instance without handle
// collisions (spec §4.8, §9 "Global state").
var globalValueLogID atomic.Uint64

func nextValueLogID() uint64 {
	return globalValueLogID.Add(1)
}

// IDGenerator issues monotonically increasing segment ids for one value
// log (spec §9 "segment-id ... is per-value-log, seeded from the manifest
// on recovery"). It implements internal/record.IDGenerator.
type IDGenerator struct {
	next atomic.Uint64
}

// NewIDGenerator returns a generator whose first issued id is start.
func NewIDGenerator(start uint64) *IDGenerator {
	g := &IDGenerator{}
	g.next.Store(start)
	return g
}

// NextSegmentID returns the next id and advances the counter.
func (g *IDGenerator) NextSegmentID() uint64 {
	return g.next.Add(1) - 1
}

// Peek returns the id that would be issued by the next call, without
// advancing the counter.
func (g *IDGenerator) Peek() uint64 {
	return g.next.Load()
}
