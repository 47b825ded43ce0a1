package doccrypt

import (
	"context"
	"encoding/json"

	"github.com/vaultdoc/fieldcrypt/errors"
	"github.com/vaultdoc/fieldcrypt/keyprovider"
	"github.com/vaultdoc/fieldcrypt/log"
)

// Encrypt is the public byte-stream encrypt entry point (§6). An
// empty PathsToEncrypt returns input unchanged (§8 property 2); the
// legacy algorithm is dispatched to the whole-object Tree mode since
// it is never streamed, and the randomized algorithm is dispatched to
// the Stream Processor (C6).
func Encrypt(ctx context.Context, input []byte, opts EncryptionOptions, provider keyprovider.Provider) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(opts.PathsToEncrypt) == 0 {
		out := make([]byte, len(input))
		copy(out, input)
		return out, nil
	}

	if opts.Algorithm == keyprovider.AlgorithmLegacy {
		doc, err := decodeDocument(input)
		if err != nil {
			return nil, err
		}
		sidecar, err := encryptLegacyMap(ctx, doc, opts, provider)
		if err != nil {
			log.Error.Printf("Encrypt: legacy mode failed: %v", err)
			return nil, err
		}
		if len(sidecar.EncryptedPaths) == 0 {
			out := make([]byte, len(input))
			copy(out, input)
			return out, nil
		}
		doc[SidecarKey] = sidecar
		return encodeDocument(doc)
	}

	out, err := encryptStream(ctx, input, opts, provider)
	if err != nil {
		log.Error.Printf("Encrypt: failed: %v", err)
		return nil, err
	}
	return out, nil
}

// Decrypt is the public byte-stream decrypt entry point (§6). A
// document lacking the sidecar returns the input unmodified and a nil
// report (§6, I/O contract).
func Decrypt(ctx context.Context, input []byte, provider keyprovider.Provider) ([]byte, *DecryptionReport, error) {
	sidecar, err := findSidecar(input)
	if err != nil {
		log.Error.Printf("Decrypt: %v", err)
		return nil, nil, err
	}
	if sidecar == nil {
		out := make([]byte, len(input))
		copy(out, input)
		return out, nil, nil
	}

	switch sidecar.EncryptionFormatVersion {
	case FormatVersionLegacy:
		doc, err := decodeDocument(input)
		if err != nil {
			return nil, nil, err
		}
		delete(doc, SidecarKey)
		if err := decryptLegacyMap(ctx, doc, sidecar, provider); err != nil {
			log.Error.Printf("Decrypt: legacy mode failed: %v", err)
			return nil, nil, err
		}
		out, err := encodeDocument(doc)
		if err != nil {
			return nil, nil, err
		}
		return out, &DecryptionReport{
			PathsDecrypted: sidecar.EncryptedPaths,
			KeyID:          sidecar.DataEncryptionKeyId,
			Algorithm:      sidecar.EncryptionAlgorithm,
		}, nil
	case FormatVersionNoCompression, FormatVersionCompressed:
		out, report, err := decryptStream(ctx, input, sidecar, provider)
		if err != nil {
			log.Error.Printf("Decrypt: failed: %v", err)
			return nil, nil, err
		}
		return out, report, nil
	default:
		return nil, nil, errors.E(errors.UnsupportedFormatVersion, unsupportedVersionMessage(sidecar.EncryptionFormatVersion))
	}
}

func decodeDocument(input []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := unmarshalPreservingNumbers(input, &doc); err != nil {
		return nil, errors.E(errors.FormatViolation, "parsing input document", err)
	}
	return doc, nil
}

func encodeDocument(doc map[string]interface{}) ([]byte, error) {
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.E(errors.Internal, "serializing output document", err)
	}
	return out, nil
}
