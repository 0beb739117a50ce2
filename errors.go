package vlog

import (
	goerrors "errors"

	"github.com/fjall-rs/value-log/internal/coding"
	"github.com/fjall-rs/value-log/internal/manifest"
)

// Error kind aliases (spec §7). Encode/Decode and Unrecoverable errors are
// produced deep in internal/coding and internal/manifest; these aliases
// let callers match them with errors.As without importing internal
// packages, the same boundary-keeping `internal/` gives the teacher's
// sstable/objstorage split.
type (
	EncodeError         = coding.EncodeError
	DecodeError         = coding.DecodeError
	InvalidVersionError = manifest.InvalidVersionError
	UnrecoverableError  = manifest.UnrecoverableError
)

// IsInvalidVersion reports whether err is (or wraps) an InvalidVersionError
// — the ".vlog" marker was missing or named an unsupported format version.
func IsInvalidVersion(err error) bool {
	var e *InvalidVersionError
	return goerrors.As(err, &e)
}

// IsUnrecoverable reports whether err is (or wraps) an UnrecoverableError
// — the manifest listed a segment id whose file couldn't be loaded.
func IsUnrecoverable(err error) bool {
	var e *UnrecoverableError
	return goerrors.As(err, &e)
}
