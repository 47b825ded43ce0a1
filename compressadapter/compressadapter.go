// Package compressadapter wraps a byte buffer in a pluggable stream
// compressor/decompressor, selected by algorithm name, the way the
// teacher's compress package selects a reader/writer by file
// extension. The encrypt path writes plaintext into a compressor and
// collects the compressed bytes; the decrypt path inverses.
package compressadapter

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	kflate "github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"github.com/vaultdoc/fieldcrypt/errors"
)

// Algorithm is one of the compression enum values a request may name.
type Algorithm string

const (
	None    Algorithm = "none"
	Deflate Algorithm = "deflate"
	Gzip    Algorithm = "gzip"
	Brotli  Algorithm = "brotli"
)

// Level is a generic fastest/default/best knob, translated to each
// backend library's own level range.
type Level int

const (
	LevelFastest Level = kflate.BestSpeed
	LevelDefault Level = kflate.DefaultCompression
	LevelBest    Level = kflate.BestCompression
)

// Options bundles the request-level compression parameters (§3):
// which algorithm to use, at what level, and the minimum serialized
// length a value must have before it is compressed at all.
type Options struct {
	Algorithm   Algorithm
	Level       Level
	MinimumSize int
}

// ShouldCompress reports whether a value of the given serialized
// length should be compressed under these options.
func (o Options) ShouldCompress(length int) bool {
	return o.Algorithm != "" && o.Algorithm != None && length >= o.MinimumSize
}

// wireCodes maps each algorithm to the single byte recorded in the
// secondary per-value header (framer.CompressedPlaintext). The
// sidecar's CompressionAlgorithm field records the algorithm's name,
// not this byte.
var wireCodes = map[Algorithm]byte{
	None:    0,
	Deflate: 1,
	Gzip:    2,
	Brotli:  3,
}

// Byte returns the wire byte for alg.
func Byte(alg Algorithm) (byte, error) {
	b, ok := wireCodes[alg]
	if !ok {
		return 0, errors.E(errors.InvalidArgument, "unsupported compression algorithm", errors.New(string(alg)))
	}
	return b, nil
}

// FromByte is the inverse of Byte.
func FromByte(b byte) (Algorithm, error) {
	for alg, code := range wireCodes {
		if code == b {
			return alg, nil
		}
	}
	return "", errors.E(errors.FormatViolation, "unknown compression algorithm byte")
}

// Compress returns plaintext compressed under alg at level.
func Compress(alg Algorithm, level Level, plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	wc, err := newWriter(alg, level, &buf)
	if err != nil {
		return nil, errors.E(errors.Internal, "creating compressor", err)
	}
	if _, err := wc.Write(plaintext); err != nil {
		return nil, errors.E(errors.Internal, "writing to compressor", err)
	}
	if err := wc.Close(); err != nil {
		return nil, errors.E(errors.Internal, "closing compressor", err)
	}
	return buf.Bytes(), nil
}

// Decompress returns the decompressed form of data, assumed to have
// been produced by Compress under the same alg.
func Decompress(alg Algorithm, data []byte) ([]byte, error) {
	r, err := newReader(alg, bytes.NewReader(data))
	if err != nil {
		return nil, errors.E(errors.FormatViolation, "creating decompressor", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.E(errors.FormatViolation, "reading decompressed bytes", err)
	}
	if c, ok := r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return nil, errors.E(errors.FormatViolation, "closing decompressor", err)
		}
	}
	return out, nil
}

func newWriter(alg Algorithm, level Level, w io.Writer) (io.WriteCloser, error) {
	switch alg {
	case Deflate:
		return kflate.NewWriter(w, int(level))
	case Gzip:
		return gzip.NewWriterLevel(w, int(level))
	case Brotli:
		return brotli.NewWriterLevel(w, brotliLevel(level)), nil
	default:
		return nil, errors.E(errors.InvalidArgument, "unsupported compression algorithm", errors.New(string(alg)))
	}
}

func newReader(alg Algorithm, r io.Reader) (io.Reader, error) {
	switch alg {
	case Deflate:
		return kflate.NewReader(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Brotli:
		return brotli.NewReader(r), nil
	default:
		return nil, errors.E(errors.InvalidArgument, "unsupported compression algorithm", errors.New(string(alg)))
	}
}

// brotliLevel maps the generic fastest/default/best levels onto
// brotli's 0-11 quality scale; brotli has no "default" sentinel of
// its own the way flate/gzip do.
func brotliLevel(level Level) int {
	switch level {
	case LevelFastest:
		return 0
	case LevelBest:
		return 11
	default:
		return 6
	}
}
