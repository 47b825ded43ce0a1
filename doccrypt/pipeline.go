package doccrypt

import (
	"context"

	"github.com/vaultdoc/fieldcrypt/compressadapter"
	"github.com/vaultdoc/fieldcrypt/errors"
	"github.com/vaultdoc/fieldcrypt/framer"
	"github.com/vaultdoc/fieldcrypt/keyprovider"
	"github.com/vaultdoc/fieldcrypt/log"
	"github.com/vaultdoc/fieldcrypt/pool"
	"github.com/vaultdoc/fieldcrypt/typedvalue"
)

// encryptValue runs one property's value through C1 -> optional C2 ->
// C4 -> C3, returning the fully framed ciphertext bytes ready to be
// base64-encoded into the output document, plus whether compression
// was actually applied and, if so, the pre-compression plaintext
// length (for the sidecar's CompressedEncryptedPaths, per OQ1).
func encryptValue(ctx context.Context, path string, v interface{}, copt compressadapter.Options, handle keyprovider.KeyHandle, scope *pool.Scope) (framed []byte, compressed bool, originalLen int, err error) {
	log.Debug.Printf("encryptValue: enter %s", log.Property(path))
	defer func() { log.Debug.Printf("encryptValue: exit %s compressed=%v err=%v", log.Property(path), compressed, err) }()

	marker, raw, err := typedvalue.Encode(v)
	if err != nil {
		return nil, false, 0, err
	}

	plaintext := raw
	outerMarker := marker
	if copt.ShouldCompress(len(raw)) {
		compByte, err := compressadapter.Byte(copt.Algorithm)
		if err != nil {
			return nil, false, 0, err
		}
		compBytes, err := compressadapter.Compress(copt.Algorithm, copt.Level, raw)
		if err != nil {
			return nil, false, 0, errors.E(errors.Internal, "compressing value", err)
		}
		plaintext = framer.EncodeCompressed(framer.CompressedPlaintext{
			CompressionAlgorithm: compByte,
			OriginalLength:       uint32(len(raw)),
			InnerMarker:          marker,
			Compressed:           compBytes,
		})
		outerMarker = typedvalue.MarkerCompressed
		compressed = true
		originalLen = len(raw)
	}

	ciphertextLen := handle.CiphertextLength(len(plaintext))
	dst := scope.Rent(ciphertextLen)[:ciphertextLen]
	n, err := handle.Encrypt(ctx, plaintext, dst, 0)
	if err != nil {
		return nil, false, 0, err
	}
	framed = framer.EncodeOuter(outerMarker, dst[:n])
	return framed, compressed, originalLen, nil
}

// decryptValue is the inverse of encryptValue: given the full framed
// bytes of one property (after base64 decoding), it returns the
// recovered JSON value, whether the plaintext carried a compressed
// secondary header, and (if so) the original length recorded in that
// header, so the caller can cross-check it against the sidecar's
// CompressedEncryptedPaths entry.
func decryptValue(ctx context.Context, path string, framed []byte, handle keyprovider.KeyHandle, scope *pool.Scope) (value interface{}, compressed bool, originalLen int, err error) {
	log.Debug.Printf("decryptValue: enter %s", log.Property(path))
	defer func() { log.Debug.Printf("decryptValue: exit %s compressed=%v err=%v", log.Property(path), compressed, err) }()

	marker, ciphertext, err := framer.DecodeOuter(framed)
	if err != nil {
		return nil, false, 0, err
	}

	plaintextLen := handle.PlaintextLength(len(ciphertext))
	dst := scope.Rent(plaintextLen)[:plaintextLen]
	n, err := handle.Decrypt(ctx, ciphertext, dst, 0)
	if err != nil {
		return nil, false, 0, err
	}
	plaintext := dst[:n]

	if marker != typedvalue.MarkerCompressed {
		v, err := typedvalue.Decode(marker, plaintext)
		if err != nil {
			return nil, false, 0, err
		}
		return v, false, 0, nil
	}

	cp, err := framer.DecodeCompressed(plaintext)
	if err != nil {
		return nil, false, 0, err
	}
	alg, err := compressadapter.FromByte(cp.CompressionAlgorithm)
	if err != nil {
		return nil, false, 0, err
	}
	raw, err := compressadapter.Decompress(alg, cp.Compressed)
	if err != nil {
		return nil, false, 0, err
	}
	if uint32(len(raw)) != cp.OriginalLength {
		return nil, false, 0, errors.E(errors.CompressionMismatch, "decompressed length does not match the secondary header's recorded length")
	}
	v, err := typedvalue.Decode(cp.InnerMarker, raw)
	if err != nil {
		return nil, false, 0, err
	}
	return v, true, int(cp.OriginalLength), nil
}

// checkCompressionConsistency cross-checks what decryptValue actually
// found against what the sidecar claims for path p (§7,
// compression_mismatch).
func checkCompressionConsistency(p string, wasCompressed bool, originalLen int, compressedPaths map[string]int) error {
	recordedLen, expectCompressed := compressedPaths[p]
	if wasCompressed != expectCompressed {
		return errors.E(errors.CompressionMismatch, "compression flag mismatch for path "+p)
	}
	if expectCompressed && recordedLen != originalLen {
		return errors.E(errors.CompressionMismatch, "original length mismatch for path "+p)
	}
	return nil
}
