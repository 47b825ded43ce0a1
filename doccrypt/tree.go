// Tree Processor (C5): operates on an already-parsed JSON object,
// mutating it in place rather than streaming tokens. This is the mode
// DecryptTree uses, and the mode EncryptTree uses for callers that
// already hold a parsed document (also exercised by the tree/stream
// parity tests, §8 property 6).
package doccrypt

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/vaultdoc/fieldcrypt/errors"
	"github.com/vaultdoc/fieldcrypt/keyprovider"
	"github.com/vaultdoc/fieldcrypt/log"
	"github.com/vaultdoc/fieldcrypt/pool"
)

// EncryptTree runs the Tree Processor encrypt direction (§4.5) over an
// already-parsed JSON object, mutating and returning it.
func EncryptTree(ctx context.Context, doc map[string]interface{}, opts EncryptionOptions, provider keyprovider.Provider) (_ map[string]interface{}, err error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(opts.PathsToEncrypt) == 0 {
		return doc, nil
	}
	if opts.Algorithm == keyprovider.AlgorithmLegacy {
		sidecar, err := encryptLegacyMap(ctx, doc, opts, provider)
		if err != nil {
			log.Error.Printf("EncryptTree: legacy mode failed: %v", err)
			return nil, err
		}
		if len(sidecar.EncryptedPaths) == 0 {
			return doc, nil
		}
		doc[SidecarKey] = sidecar
		return doc, nil
	}

	handle, err := provider.GetKey(ctx, opts.DataEncryptionKeyID, opts.Algorithm)
	if err != nil {
		return nil, err
	}

	scope := pool.NewScope(nil)
	defer errors.CleanUp(scope.Release, &err)

	encryptedPaths := make([]string, 0, len(opts.PathsToEncrypt))
	compressedPaths := map[string]int{}
	for _, p := range opts.PathsToEncrypt {
		name := strings.TrimPrefix(p, "/")
		v, ok := doc[name]
		if !ok || v == nil {
			continue
		}
		framed, compressed, origLen, err := encryptValue(ctx, p, v, opts.Compression, handle, scope)
		if err != nil {
			log.Error.Printf("EncryptTree: encrypting failed %s: %v", log.Property(p), err)
			return nil, errors.E("encrypting path "+p, err)
		}
		doc[name] = base64.StdEncoding.EncodeToString(framed)
		encryptedPaths = append(encryptedPaths, p)
		if compressed {
			compressedPaths[p] = origLen
		}
	}

	if len(encryptedPaths) == 0 {
		return doc, nil
	}

	version := FormatVersionNoCompression
	if len(compressedPaths) > 0 {
		version = FormatVersionCompressed
	}
	compAlg := opts.Compression.Algorithm
	if compAlg == "" {
		compAlg = "none"
	}
	sidecar := Sidecar{
		EncryptionFormatVersion: version,
		EncryptionAlgorithm:     string(opts.Algorithm),
		DataEncryptionKeyId:     opts.DataEncryptionKeyID,
		EncryptedPaths:          encryptedPaths,
		CompressionAlgorithm:    string(compAlg),
	}
	if len(compressedPaths) > 0 {
		sidecar.CompressedEncryptedPaths = compressedPaths
	}
	doc[SidecarKey] = sidecar
	return doc, nil
}

// DecryptTree runs the Tree Processor decrypt direction over an
// already-parsed JSON object, mutating and returning it, per the
// public API named in §6.
func DecryptTree(ctx context.Context, doc map[string]interface{}, provider keyprovider.Provider) (_ map[string]interface{}, _ *DecryptionReport, err error) {
	rawSidecar, ok := doc[SidecarKey]
	if !ok {
		return doc, nil, nil
	}
	sidecar, err := coerceSidecar(rawSidecar)
	if err != nil {
		return nil, nil, err
	}
	delete(doc, SidecarKey)

	switch sidecar.EncryptionFormatVersion {
	case FormatVersionLegacy:
		if err := decryptLegacyMap(ctx, doc, sidecar, provider); err != nil {
			log.Error.Printf("DecryptTree: legacy mode failed: %v", err)
			return nil, nil, err
		}
	case FormatVersionNoCompression, FormatVersionCompressed:
		if err := decryptPerValueMap(ctx, doc, sidecar, provider); err != nil {
			log.Error.Printf("DecryptTree: failed: %v", err)
			return nil, nil, err
		}
	default:
		return nil, nil, errors.E(errors.UnsupportedFormatVersion, unsupportedVersionMessage(sidecar.EncryptionFormatVersion))
	}

	report := &DecryptionReport{
		PathsDecrypted: sidecar.EncryptedPaths,
		KeyID:          sidecar.DataEncryptionKeyId,
		Algorithm:      sidecar.EncryptionAlgorithm,
	}
	return doc, report, nil
}

// decryptPerValueMap implements the per-property decrypt rule of
// §4.5: paths listed in the sidecar but absent or not a string in the
// document are silently skipped; a present ciphertext string that
// fails to decode or decrypt is a hard error.
func decryptPerValueMap(ctx context.Context, doc map[string]interface{}, sidecar *Sidecar, provider keyprovider.Provider) (err error) {
	if len(sidecar.EncryptedPaths) == 0 {
		return nil
	}
	handle, err := provider.GetKey(ctx, sidecar.DataEncryptionKeyId, keyprovider.Algorithm(sidecar.EncryptionAlgorithm))
	if err != nil {
		return err
	}

	scope := pool.NewScope(nil)
	defer errors.CleanUp(scope.Release, &err)

	for _, p := range sidecar.EncryptedPaths {
		name := strings.TrimPrefix(p, "/")
		raw, ok := doc[name]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		framed, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return errors.E(errors.FormatViolation, "invalid base64 for path "+p, err)
		}
		v, wasCompressed, origLen, err := decryptValue(ctx, p, framed, handle, scope)
		if err != nil {
			return errors.E("decrypting path "+p, err)
		}
		if err := checkCompressionConsistency(p, wasCompressed, origLen, sidecar.CompressedEncryptedPaths); err != nil {
			return err
		}
		doc[name] = v
	}
	return nil
}
