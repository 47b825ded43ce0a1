// Package framer places and parses the per-value framing bytes: the
// single leading TypeMarker byte that precedes every value's
// ciphertext, and the secondary in-plaintext header written ahead of
// compressed bytes. Framer owns every byte offset in this layout; no
// other package may reach into it directly.
package framer

import (
	"encoding/binary"

	"github.com/vaultdoc/fieldcrypt/errors"
	"github.com/vaultdoc/fieldcrypt/typedvalue"
)

// OuterHeaderLen is the width of the header written ahead of every
// value's ciphertext: a single TypeMarker byte.
const OuterHeaderLen = 1

// CompressedHeaderLen is the width of the secondary header written
// inside the plaintext when a value was compressed before encryption:
// one compression-algorithm byte, a 4-byte big-endian original
// length, and one inner type-marker byte.
const CompressedHeaderLen = 1 + 4 + 1

// EncodeOuter writes the outer per-value header: the TypeMarker byte
// followed by ciphertext, exactly the layout of §3 of the design
// ("[TypeMarker(1)] [Ciphertext(N)]").
func EncodeOuter(marker typedvalue.Marker, ciphertext []byte) []byte {
	out := make([]byte, OuterHeaderLen+len(ciphertext))
	out[0] = byte(marker)
	copy(out[OuterHeaderLen:], ciphertext)
	return out
}

// DecodeOuter splits a framed value into its leading TypeMarker and
// the ciphertext that follows it.
func DecodeOuter(data []byte) (typedvalue.Marker, []byte, error) {
	if len(data) < OuterHeaderLen {
		return 0, nil, errors.E(errors.FormatViolation, "value shorter than outer header")
	}
	return typedvalue.Marker(data[0]), data[OuterHeaderLen:], nil
}

// CompressedPlaintext is the secondary header carried inside the
// decrypted plaintext of a value whose outer TypeMarker is
// typedvalue.MarkerCompressed (OQ1: the wire layout embeds the
// original length here rather than relying solely on the sidecar).
type CompressedPlaintext struct {
	CompressionAlgorithm byte
	OriginalLength       uint32
	InnerMarker          typedvalue.Marker
	Compressed           []byte
}

// EncodeCompressed lays out the secondary header followed by the
// compressed bytes.
func EncodeCompressed(c CompressedPlaintext) []byte {
	out := make([]byte, CompressedHeaderLen+len(c.Compressed))
	out[0] = c.CompressionAlgorithm
	binary.BigEndian.PutUint32(out[1:5], c.OriginalLength)
	out[5] = byte(c.InnerMarker)
	copy(out[CompressedHeaderLen:], c.Compressed)
	return out
}

// DecodeCompressed parses the secondary header out of a decrypted
// plaintext buffer known to carry one.
func DecodeCompressed(data []byte) (CompressedPlaintext, error) {
	if len(data) < CompressedHeaderLen {
		return CompressedPlaintext{}, errors.E(errors.FormatViolation, "compressed plaintext shorter than secondary header")
	}
	return CompressedPlaintext{
		CompressionAlgorithm: data[0],
		OriginalLength:       binary.BigEndian.Uint32(data[1:5]),
		InnerMarker:          typedvalue.Marker(data[5]),
		Compressed:           data[CompressedHeaderLen:],
	}, nil
}
