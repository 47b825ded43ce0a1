package framer_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultdoc/fieldcrypt/framer"
	"github.com/vaultdoc/fieldcrypt/typedvalue"
)

func TestOuterRoundTrip(t *testing.T) {
	ciphertext := []byte("some-ciphertext-bytes")
	framed := framer.EncodeOuter(typedvalue.MarkerString, ciphertext)
	require.Equal(t, byte(typedvalue.MarkerString), framed[0])

	marker, ct, err := framer.DecodeOuter(framed)
	require.NoError(t, err)
	require.Equal(t, typedvalue.MarkerString, marker)
	require.Equal(t, ciphertext, ct)
}

func TestDecodeOuterRejectsShortInput(t *testing.T) {
	_, _, err := framer.DecodeOuter(nil)
	require.Error(t, err)
}

func TestCompressedRoundTrip(t *testing.T) {
	in := framer.CompressedPlaintext{
		CompressionAlgorithm: 2,
		OriginalLength:       1234,
		InnerMarker:          typedvalue.MarkerString,
		Compressed:           []byte("deflated-bytes"),
	}
	encoded := framer.EncodeCompressed(in)

	out, err := framer.DecodeCompressed(encoded)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeCompressedRejectsShortInput(t *testing.T) {
	_, err := framer.DecodeCompressed([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestOuterThenCompressedNesting(t *testing.T) {
	compressed := framer.EncodeCompressed(framer.CompressedPlaintext{
		CompressionAlgorithm: 1,
		OriginalLength:       99,
		InnerMarker:          typedvalue.MarkerLong,
		Compressed:           []byte("xx"),
	})
	// Compressed plaintext is what gets encrypted; the outer header
	// wraps the resulting ciphertext with MarkerCompressed.
	framed := framer.EncodeOuter(typedvalue.MarkerCompressed, compressed)

	marker, rest, err := framer.DecodeOuter(framed)
	require.NoError(t, err)
	require.Equal(t, typedvalue.MarkerCompressed, marker)

	inner, err := framer.DecodeCompressed(rest)
	require.NoError(t, err)
	require.Equal(t, typedvalue.MarkerLong, inner.InnerMarker)
	require.Equal(t, uint32(99), inner.OriginalLength)
}
