// Package compression provides the concrete Compressor implementations the
// value log can wire into a segment's writer/reader path (spec §9
// "per-value compression is optional and scheme-per-file").
package compression

import (
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// SnappyCompressor compresses values with snappy block compression.
type SnappyCompressor struct{}

func (SnappyCompressor) Compress(in []byte) ([]byte, error) {
	return snappy.Encode(nil, in), nil
}

func (SnappyCompressor) Decompress(in []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, in)
	if err != nil {
		return nil, errors.Wrap(err, "value-log: snappy decompress")
	}
	return out, nil
}

// ZstdCompressor compresses values with zstd at the library's default
// level. Build one with NewZstdCompressor; the zero value has no encoder or
// decoder and cannot be used.
type ZstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstdCompressor builds a reusable encoder/decoder pair. The encoder
// and decoder are safe for concurrent use by multiple goroutines, matching
// klauspost/compress/zstd's own concurrency contract.
func NewZstdCompressor() (*ZstdCompressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "value-log: create zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, errors.Wrap(err, "value-log: create zstd decoder")
	}
	return &ZstdCompressor{encoder: enc, decoder: dec}, nil
}

func (z *ZstdCompressor) Compress(in []byte) ([]byte, error) {
	return z.encoder.EncodeAll(in, make([]byte, 0, len(in))), nil
}

func (z *ZstdCompressor) Decompress(in []byte) ([]byte, error) {
	out, err := z.decoder.DecodeAll(in, nil)
	if err != nil {
		return nil, errors.Wrap(err, "value-log: zstd decompress")
	}
	return out, nil
}

// Close releases the decoder's background goroutines/resources. The
// encoder has no Close-release requirement beyond flushing in-flight
// frames, which EncodeAll always does synchronously.
func (z *ZstdCompressor) Close() {
	z.decoder.Close()
}
