package vlog

import (
	"github.com/rs/zerolog"

	"github.com/fjall-rs/value-log/internal/record"
)

// CompressionKind identifies which compression scheme a Config wires in.
// Values line up 1:1 with internal/record.CompressionType so the facade
// can translate without a lookup table.
type CompressionKind uint8

const (
	CompressionNone CompressionKind = iota
	CompressionSnappy
	CompressionZstd
)

func (k CompressionKind) toRecord() record.CompressionType { return record.CompressionType(k) }

// defaultSegmentSizeBytes matches the source project's default of 256 MiB
// (spec §6 Configuration, "128-256 MiB").
const defaultSegmentSizeBytes = 256 * 1024 * 1024

// Config configures a ValueLog. Build one with NewConfig and the With...
// options; the zero Config is not valid on its own, matching the source
// project's Config::default() plus builder methods (generalized to Go's
// functional-options idiom, per SPEC_FULL.md's AMBIENT STACK).
type Config struct {
	segmentSizeBytes uint64
	blobCache        BlobCache
	fdCache          FdCache
	compressionKind  CompressionKind
	compression      Compressor
	logger           zerolog.Logger
}

// Option configures a Config.
type Option func(*Config)

// NewConfig builds a Config with the source project's defaults: a 256 MiB
// segment size, no blob cache, no fd cache, no compression, and a no-op
// logger.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		segmentSizeBytes: defaultSegmentSizeBytes,
		logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithSegmentSizeBytes sets the target size at which the active segment
// rotates (spec §6 "segment_size_bytes").
func WithSegmentSizeBytes(n uint64) Option {
	return func(c *Config) { c.segmentSizeBytes = n }
}

// WithBlobCache sets the cache consulted/populated by Get (spec §6
// "blob_cache", required by the source spec but optional here — a nil
// cache simply means every Get reads from disk).
func WithBlobCache(cache BlobCache) Option {
	return func(c *Config) { c.blobCache = cache }
}

// WithFdCache sets the cache used to avoid reopening blob files on every
// random read (spec §6 "fd_cache").
func WithFdCache(cache FdCache) Option {
	return func(c *Config) { c.fdCache = cache }
}

// WithCompression sets the compressor applied to values before they're
// written, and the scheme tag recorded in each segment's metadata block
// (spec §6 "compression"). Reads decompress every segment with the
// compressor configured here; the recorded tag does not select a
// decompressor. Default is no compression.
func WithCompression(kind CompressionKind, c Compressor) Option {
	return func(cfg *Config) {
		cfg.compressionKind = kind
		cfg.compression = c
	}
}

// WithLogger sets the structured logger used for debug points (manifest
// creation and segment registration, recovery and orphan unlinking,
// liveness scans, dropping stale segments); Rollover logs nothing.
// Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) { c.logger = logger }
}
