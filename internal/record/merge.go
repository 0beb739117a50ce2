package record

import (
	"bytes"
	"container/heap"

	"github.com/cockroachdb/errors"
)

// MergedEntry is one deduplicated (key, value) pair yielded by MergeReader,
// together with the handle it lived at in its source segment — GC rollover
// needs the old handle to know which index entries to repoint (spec §4.6).
type MergedEntry struct {
	Key    []byte
	Value  []byte
	Handle Handle
}

type mergeItem struct {
	entry     Entry
	segmentID uint64
	scanner   *Scanner
	index     int // position in the source slice (not consulted by Less)
}

// mergeHeap orders candidates by key ascending, then by segment id
// descending so that, among equal keys, the item from the most recently
// created segment — the newest version — sorts first (spec §4.6 "merge
// keeps the highest segment id on key collision").
type mergeHeap []*mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	c := bytes.Compare(h[i].entry.Key, h[j].entry.Key)
	if c != 0 {
		return c < 0
	}
	return h[i].segmentID > h[j].segmentID
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(*mergeItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MergeReader performs a k-way merge across a set of segment scanners,
// ordered by key, deduplicating to the newest version on collision
// (spec §4.6). It is the read side of GC rollover: the writer that
// consumes it only ever sees live, deduplicated records.
type MergeReader struct {
	scanners []*Scanner
	heap     mergeHeap
	started  bool
	lastKey  []byte
	hasLast  bool
}

// NewMergeReader builds a merge over scanners, which must already be
// positioned at the start of their respective segments. Scanners are not
// closed when they're exhausted or on error; Close closes all of them.
func NewMergeReader(scanners []*Scanner) *MergeReader {
	return &MergeReader{scanners: scanners}
}

func (mr *MergeReader) fill() error {
	mr.heap = make(mergeHeap, 0, len(mr.scanners))
	heap.Init(&mr.heap)
	for i, s := range mr.scanners {
		entry, ok, err := s.Next()
		if err != nil {
			return errors.Wrap(err, "value-log: merge: read segment")
		}
		if !ok {
			continue
		}
		heap.Push(&mr.heap, &mergeItem{entry: entry, segmentID: s.FileID, scanner: s, index: i})
	}
	mr.started = true
	return nil
}

// Next returns the next deduplicated, key-ordered entry, or (MergedEntry{},
// false, nil) once every source scanner is exhausted.
func (mr *MergeReader) Next() (MergedEntry, bool, error) {
	if !mr.started {
		if err := mr.fill(); err != nil {
			return MergedEntry{}, false, err
		}
	}

	for mr.heap.Len() > 0 {
		top := mr.heap[0]
		out := MergedEntry{
			Key:    top.entry.Key,
			Value:  top.entry.Value,
			Handle: Handle{FileID: top.segmentID, Offset: top.entry.ValueOffset},
		}

		if err := mr.advance(top); err != nil {
			return MergedEntry{}, false, err
		}

		skip := mr.hasLast && bytes.Equal(out.Key, mr.lastKey)
		mr.lastKey = append(mr.lastKey[:0], out.Key...)
		mr.hasLast = true

		if skip {
			// An older version of a key already seen from a higher
			// segment id; drop it and keep going.
			continue
		}
		return out, true, nil
	}

	return MergedEntry{}, false, nil
}

// advance pops top from the heap and, if its source scanner has more
// records, reads the next one and reinserts it.
func (mr *MergeReader) advance(top *mergeItem) error {
	heap.Pop(&mr.heap)
	entry, ok, err := top.scanner.Next()
	if err != nil {
		return errors.Wrap(err, "value-log: merge: read segment")
	}
	if !ok {
		return nil
	}
	heap.Push(&mr.heap, &mergeItem{entry: entry, segmentID: top.segmentID, scanner: top.scanner, index: top.index})
	return nil
}

// Close closes every source scanner, collecting the first error (if any).
func (mr *MergeReader) Close() error {
	var first error
	for _, s := range mr.scanners {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
