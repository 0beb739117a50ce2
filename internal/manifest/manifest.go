// Package manifest owns the set of live blob-file (segment) descriptors
// for one value log: persisting it atomically, recovering it from disk,
// and exposing the aggregate stats the GC strategies select victims from
// (spec §4.6).
package manifest

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fjall-rs/value-log/internal/coding"
	"github.com/fjall-rs/value-log/internal/record"
)

// skippedBasenames lists platform metadata files that recovery must
// neither parse nor unlink (spec §4.6, §8 "never unlinked and never
// parsed"), generalized per SPEC_FULL.md beyond the single ".DS_Store"
// example in the source project.
var skippedBasenames = map[string]bool{
	".DS_Store":  true,
	"Thumbs.db":  true,
	".directory": true,
}

// UnrecoverableError wraps a segment id the manifest lists but cannot load
// (spec §7 "Unrecoverable").
type UnrecoverableError struct {
	SegmentID uint64
	Cause     error
}

func (e *UnrecoverableError) Error() string {
	return errors.Wrapf(e.Cause, "value-log: segment %d unrecoverable", errors.Safe(e.SegmentID)).Error()
}
func (e *UnrecoverableError) Unwrap() error { return e.Cause }

// Manifest holds the live segment set behind a read-write lock (spec §5
// "Segment map").
type Manifest struct {
	dir          string
	segmentsDir  string
	manifestPath string
	markerPath   string
	log          zerolog.Logger

	mu       sync.RWMutex
	segments map[uint64]*Segment
}

func segmentPath(segmentsDir string, id uint64) string {
	return filepath.Join(segmentsDir, strconv.FormatUint(id, 10))
}

// Exists reports whether dir already holds a ".vlog" marker, the signal
// the value-log façade uses to choose between Recover and CreateNew.
func Exists(dir string) bool {
	return markerExists(filepath.Join(dir, ".vlog"))
}

// CreateNew initializes an empty value-log directory: the segments
// subdirectory, an empty manifest file, and the ".vlog" marker.
func CreateNew(dir string, log zerolog.Logger) (*Manifest, error) {
	segmentsDir := filepath.Join(dir, "segments")
	if err := os.MkdirAll(segmentsDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "value-log: create segments directory")
	}

	m := &Manifest{
		dir:          dir,
		segmentsDir:  segmentsDir,
		manifestPath: filepath.Join(dir, "vlog_manifest"),
		markerPath:   filepath.Join(dir, ".vlog"),
		log:          log,
		segments:     make(map[uint64]*Segment),
	}

	if err := atomicRewrite(m.manifestPath, serializeManifest(nil)); err != nil {
		return nil, err
	}
	if err := writeMarker(m.markerPath); err != nil {
		return nil, err
	}
	log.Debug().Str("dir", dir).Msg("value-log: created new manifest")
	return m, nil
}

// Recover rebuilds the segment set from the on-disk manifest plus each
// segment file's trailer and metadata block, then unlinks any file in the
// segments directory that the manifest does not list (spec §4.6
// "recover").
func Recover(dir string, log zerolog.Logger) (*Manifest, error) {
	markerPath := filepath.Join(dir, ".vlog")
	if err := readMarker(markerPath); err != nil {
		return nil, err
	}

	segmentsDir := filepath.Join(dir, "segments")
	manifestPath := filepath.Join(dir, "vlog_manifest")

	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, errors.Wrap(err, "value-log: read manifest file")
	}
	ids, err := deserializeManifest(raw)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		dir:          dir,
		segmentsDir:  segmentsDir,
		manifestPath: manifestPath,
		markerPath:   markerPath,
		log:          log,
		segments:     make(map[uint64]*Segment, len(ids)),
	}

	loaded := make([]*Segment, len(ids))
	grp := new(errgroup.Group)
	grp.SetLimit(max(1, runtime.GOMAXPROCS(0)))
	for i, id := range ids {
		i, id := i, id
		grp.Go(func() error {
			seg, err := loadSegment(segmentsDir, id)
			if err != nil {
				return &UnrecoverableError{SegmentID: id, Cause: err}
			}
			loaded[i] = seg
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	for _, seg := range loaded {
		m.segments[seg.ID] = seg
	}

	if err := m.unlinkOrphans(); err != nil {
		return nil, err
	}

	log.Debug().Int("segments", len(m.segments)).Msg("value-log: recovered manifest")
	return m, nil
}

func loadSegment(segmentsDir string, id uint64) (*Segment, error) {
	path := segmentPath(segmentsDir, id)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "value-log: open segment")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "value-log: stat segment")
	}
	if info.Size() < record.TrailerSize {
		return nil, errors.New("value-log: segment file too small for a trailer")
	}

	trailerBuf := make([]byte, record.TrailerSize)
	if _, err := f.ReadAt(trailerBuf, info.Size()-record.TrailerSize); err != nil {
		return nil, errors.Wrap(err, "value-log: read segment trailer")
	}
	trailer, err := record.DeserializeTrailer(trailerBuf)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(int64(trailer.MetadataOffset), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "value-log: seek segment metadata")
	}
	if err := coding.ExpectMagic(f, record.MetadataMagic, "Metadata"); err != nil {
		return nil, err
	}
	meta, err := record.DeserializeMetadata(f)
	if err != nil {
		return nil, err
	}

	return NewSegment(id, path, meta), nil
}

// unlinkOrphans removes any file under the segments directory not present
// in m.segments, skipping platform metadata basenames.
func (m *Manifest) unlinkOrphans() error {
	entries, err := os.ReadDir(m.segmentsDir)
	if err != nil {
		return errors.Wrap(err, "value-log: list segments directory")
	}
	for _, e := range entries {
		if e.IsDir() || skippedBasenames[e.Name()] {
			continue
		}
		id, err := strconv.ParseUint(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		if _, ok := m.segments[id]; ok {
			continue
		}
		path := filepath.Join(m.segmentsDir, e.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "value-log: unlink orphan segment")
		}
		m.log.Debug().Str("path", path).Msg("value-log: unlinked orphan segment file")
	}
	return nil
}

// SegmentsDir returns the directory new blob files should be created in.
func (m *Manifest) SegmentsDir() string { return m.segmentsDir }

// Get returns the segment for id, if live.
func (m *Manifest) Get(id uint64) (*Segment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seg, ok := m.segments[id]
	return seg, ok
}

// Snapshot returns the currently live segment ids, sorted ascending —
// used by liveness scans to fix the set they operate over (spec §4.7
// step 1 "snapshots the current segment-id set").
func (m *Manifest) Snapshot() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uint64, 0, len(m.segments))
	for id := range m.segments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// All returns every live segment, in no particular order.
func (m *Manifest) All() []*Segment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Segment, 0, len(m.segments))
	for _, seg := range m.segments {
		out = append(out, seg)
	}
	return out
}

// AtomicSwap clones the live segment map, lets mutate edit the clone, then
// persists the new id list and publishes the clone under the write lock
// (spec §4.6 "atomic_swap").
func (m *Manifest) AtomicSwap(mutate func(map[uint64]*Segment)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := make(map[uint64]*Segment, len(m.segments))
	for id, seg := range m.segments {
		clone[id] = seg
	}
	mutate(clone)

	ids := make([]uint64, 0, len(clone))
	for id := range clone {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := atomicRewrite(m.manifestPath, serializeManifest(ids)); err != nil {
		return err
	}

	m.segments = clone
	return nil
}

// Register finishes mw and publishes every segment it produced with at
// least one record; writers that produced zero records already had their
// files removed by MultiWriter.Finish (spec §4.6 "register").
func (m *Manifest) Register(mw *record.MultiWriter) ([]*Segment, error) {
	metas, ids, err := mw.Finish()
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, nil
	}

	segs := make([]*Segment, len(metas))
	for i, meta := range metas {
		segs[i] = NewSegment(ids[i], segmentPath(m.segmentsDir, ids[i]), meta)
	}

	if err := m.AtomicSwap(func(live map[uint64]*Segment) {
		for _, seg := range segs {
			live[seg.ID] = seg
		}
	}); err != nil {
		return nil, err
	}

	m.log.Debug().Int("count", len(segs)).Msg("value-log: registered segments")
	return segs, nil
}

// DropSegments removes ids from the manifest via AtomicSwap. It does not
// unlink the underlying files; callers unlink after the swap succeeds
// (spec §4.6 "drop_segments").
func (m *Manifest) DropSegments(ids []uint64) error {
	return m.AtomicSwap(func(live map[uint64]*Segment) {
		for _, id := range ids {
			delete(live, id)
		}
	})
}

// Stats is the manifest's aggregate view used by GC strategies and
// reporting (spec §3 "Space amplification").
type Stats struct {
	TotalBytes    uint64
	StaleBytes    uint64
	DiskSpaceUsed uint64
	StaleRatio    float64
	SpaceAmp      float64
}

// Aggregate computes Stats over the currently live segment set.
func (m *Manifest) Aggregate() Stats {
	segs := m.All()

	var total, stale, disk uint64
	for _, seg := range segs {
		total += seg.Meta.TotalUncompressedBytes
		stale += seg.StaleBytes()
		disk += seg.Meta.CompressedBytes
	}

	var staleRatio, spaceAmp float64
	if total > 0 {
		staleRatio = float64(stale) / float64(total)
	}
	live := total - stale
	if total == 0 || live == 0 {
		spaceAmp = 0
	} else {
		spaceAmp = float64(total) / float64(live)
	}

	return Stats{
		TotalBytes:    total,
		StaleBytes:    stale,
		DiskSpaceUsed: disk,
		StaleRatio:    staleRatio,
		SpaceAmp:      spaceAmp,
	}
}
