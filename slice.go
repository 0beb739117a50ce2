package vlog

// Slice is an immutable byte buffer cheap to clone: Clone shares the
// underlying array instead of copying it, mirroring the source project's
// `Slice` (backed by `byteview::ByteView`, a reference-counted buffer).
// Callers must never mutate a Slice's bytes in place.
type Slice []byte

// NewSlice copies b into a new Slice. Use this at the point bytes first
// enter the value log (e.g. a caller's own mutable buffer).
func NewSlice(b []byte) Slice {
	out := make(Slice, len(b))
	copy(out, b)
	return out
}

// Clone returns a Slice sharing the same backing array — O(1), no
// allocation.
func (s Slice) Clone() Slice { return s }

// Bytes exposes the underlying bytes. The returned slice must be treated
// as read-only.
func (s Slice) Bytes() []byte { return []byte(s) }
