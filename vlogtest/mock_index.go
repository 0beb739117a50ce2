// Package vlogtest provides an in-memory IndexReader/IndexWriter pair for
// exercising a ValueLog without standing up a real index, mirroring the
// source project's own `mock.rs` test helper.
package vlogtest

import (
	"context"
	"sync"

	"github.com/fjall-rs/value-log"
)

type binding struct {
	handle vlog.ValueHandle
	size   uint32
}

// MockIndex is a thread-safe in-memory key→handle index for tests and
// benchmarks. It is not meant for production use: data does not survive
// process restart.
type MockIndex struct {
	mu   sync.RWMutex
	data map[string]binding
}

// NewMockIndex returns an empty MockIndex.
func NewMockIndex() *MockIndex {
	return &MockIndex{data: make(map[string]binding)}
}

// InsertDirect writes a key→handle binding immediately, bypassing the
// staged-write contract of IndexWriter. Used by tests that need to seed
// the index without a full write batch.
func (m *MockIndex) InsertDirect(key []byte, handle vlog.ValueHandle, size uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = binding{handle: handle, size: size}
}

// Get implements vlog.IndexReader.
func (m *MockIndex) Get(_ context.Context, key []byte) (vlog.ValueHandle, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[string(key)]
	if !ok {
		return vlog.ValueHandle{}, false, nil
	}
	return b.handle, true, nil
}

// Iter returns every (handle, uncompressed size) pair currently in the
// index, as a range-over-func iterator suitable for ValueLog.Scan.
func (m *MockIndex) Iter(yield func(vlog.ValueHandle, uint32) bool) {
	m.mu.RLock()
	snapshot := make([]binding, 0, len(m.data))
	for _, b := range m.data {
		snapshot = append(snapshot, b)
	}
	m.mu.RUnlock()

	for _, b := range snapshot {
		if !yield(b.handle, b.size) {
			return
		}
	}
}

// Writer returns a fresh staged write batch over m (vlog.IndexWriter).
func (m *MockIndex) Writer() *MockIndexWriter {
	return &MockIndexWriter{index: m}
}

// MockIndexWriter stages key→handle bindings until Finish commits them
// atomically, matching the source project's MockIndexWriter.
type MockIndexWriter struct {
	index  *MockIndex
	staged map[string]binding
}

// InsertIndirect implements vlog.IndexWriter.
func (w *MockIndexWriter) InsertIndirect(_ context.Context, key []byte, handle vlog.ValueHandle, size uint32) error {
	if w.staged == nil {
		w.staged = make(map[string]binding)
	}
	w.staged[string(key)] = binding{handle: handle, size: size}
	return nil
}

// Finish implements vlog.IndexWriter: all staged bindings become visible
// atomically.
func (w *MockIndexWriter) Finish(_ context.Context) error {
	w.index.mu.Lock()
	defer w.index.mu.Unlock()
	for k, b := range w.staged {
		w.index.data[k] = b
	}
	return nil
}
